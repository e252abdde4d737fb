package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uidOrEmail, pwd string) error {
	_, err := cli.usrSvc.ResetPassword(context.Background(), uidOrEmail, pwd)
	return err
}
