package main

import (
	"errors"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/service"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Tournaments []seedTournament `yaml:"tournaments"`
}

type seedTournament struct {
	Slug         string `yaml:"slug"`
	Name         string `yaml:"name"`
	Registration struct {
		Start time.Time `yaml:"start"`
		End   time.Time `yaml:"end"`
	} `yaml:"registration"`
	Bracket struct {
		Start  time.Time `yaml:"start"`
		Rounds []string  `yaml:"rounds"`
	} `yaml:"bracket"`
}

func parseSeedFile(raw []byte) ([]service.TournamentDefinition, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if len(f.Tournaments) == 0 {
		return nil, errors.New("no tournaments defined")
	}

	defs := make([]service.TournamentDefinition, 0, len(f.Tournaments))
	for _, t := range f.Tournaments {
		defs = append(defs, service.TournamentDefinition{
			Slug:              t.Slug,
			Name:              t.Name,
			RegistrationStart: t.Registration.Start.UTC(),
			RegistrationEnd:   t.Registration.End.UTC(),
			BracketStart:      t.Bracket.Start.UTC(),
			Rounds:            t.Bracket.Rounds,
		})
	}
	return defs, nil
}
