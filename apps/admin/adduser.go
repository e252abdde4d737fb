package main

import (
	"context"
	"strings"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/user"
)

// addUser updates or creates a password account. An existing admin is never demoted.
func (cli *commandLine) addUser(email, name, pwd string, isAdmin bool) (user.Profile, error) {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	now := user.NowFunc().UTC()

	p, err := cli.repos.Users.GetProfileByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return user.Profile{}, err
		}
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		p = user.Profile{
			Email:     email,
			Role:      user.RoleStudent,
			CreatedAt: now,
		}
	}
	if name != "" {
		p.DisplayName = name
	}
	if isAdmin {
		p.Role = user.RoleAdmin
	}
	var sid user.StudentIDFunc
	if p.IsStudent() && p.StudentID == "" {
		sid = cli.usrSvc.StudentID
	}
	if err := p.SetPassword(pwd); err != nil {
		return user.Profile{}, err
	}
	p.RequiresPasswordChange = false
	p.UpdatedAt = now

	if p.UID == "" {
		return cli.repos.Users.CreateProfile(ctx, p, sid)
	}
	if p, err = cli.repos.Users.UpdateProfile(ctx, p); err != nil || sid == nil {
		return p, err
	}
	return cli.repos.Users.AssignStudentID(ctx, p.UID, sid)
}
