package users

import "time"

type RoleName string

const (
	RoleAdministrator RoleName = "administrator"
	RoleOrganiser     RoleName = "organiser"
	RolePlayer        RoleName = "player"
	RoleCaptain       RoleName = "captain"
	RoleStaff         RoleName = "staff"
	RoleReferee       RoleName = "referee"
	RoleStreamer      RoleName = "streamer"
	RoleCommentator   RoleName = "commentator"
	RoleDesigner      RoleName = "designer"
	RoleMappooler     RoleName = "mappooler"
	RoleMapper        RoleName = "mapper"
	RolePlaytester    RoleName = "playtester"
)

// AllRoles lists the built-in system roles.
var AllRoles = []RoleName{
	RoleAdministrator, RoleOrganiser, RolePlayer, RoleCaptain, RoleStaff, RoleReferee,
	RoleStreamer, RoleCommentator, RoleDesigner, RoleMappooler, RoleMapper, RolePlaytester,
}

type Role struct {
	ID        int64     `db:"id"`
	Name      RoleName  `db:"name"`
	IsSystem  bool      `db:"is_system"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
