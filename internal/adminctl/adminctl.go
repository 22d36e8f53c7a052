// Package adminctl provisions administrator accounts from the command line.
// It creates the account when the email is unknown and otherwise promotes
// the existing user and resets the password.
package adminctl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/flagx"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"github.com/dmitrijs2005/docchat/internal/server/models"
)

// generatedPasswordBytes yields a 24 character hex password.
const generatedPasswordBytes = 12

var adminFlags = []string{"-email", "-name", "-generate"}

var ErrPasswordMismatch = errors.New("passwords do not match")

type Provisioner interface {
	EnsureAdmin(ctx context.Context, email, name, password string) (*models.User, bool, error)
}

type Options struct {
	Email    string
	Name     string
	Generate bool
}

// ParseOptions reads -email, -name and -generate from args, ignoring the
// server's own flags.
func ParseOptions(args []string) (Options, error) {
	var o Options

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.Email, "email", "", "admin email")
	fs.StringVar(&o.Name, "name", "", "display name for a new account")
	fs.BoolVar(&o.Generate, "generate", false, "generate a random password and print it")

	if err := fs.Parse(flagx.FilterArgs(args, adminFlags)); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Run asks for whatever opts leave out and calls p.EnsureAdmin.
func Run(ctx context.Context, p Provisioner, opts Options, in *bufio.Reader, out io.Writer) error {
	email := opts.Email
	if email == "" {
		var err error
		if email, err = GetSimpleText(in, "Admin email", out); err != nil {
			return err
		}
	}

	password, err := obtainPassword(opts.Generate, out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, created, err := p.EnsureAdmin(ctx, email, opts.Name, string(password))
	if err != nil {
		if ve, ok := common.AsValidationError(err); ok {
			return errors.New(ve.Message)
		}
		return err
	}

	if created {
		fmt.Fprintf(out, "Created admin account %s (%s)\n", user.Email, user.ID)
	} else {
		fmt.Fprintf(out, "Promoted %s (%s) to admin and reset the password\n", user.Email, user.ID)
	}
	if opts.Generate {
		fmt.Fprintf(out, "Password: %s\n", password)
	}
	return nil
}

func obtainPassword(generate bool, out io.Writer) ([]byte, error) {
	if generate {
		return generatePassword()
	}

	pw, err := GetPassword(out, "Enter password")
	if err != nil {
		return nil, err
	}
	again, err := GetPassword(out, "Repeat password")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(pw, again) {
		common.WipeByteArray(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}

// generatePassword draws hex strings until one passes the password policy;
// an all-digit or all-letter draw is rejected.
func generatePassword() ([]byte, error) {
	for {
		s, err := common.MakeRandHexString(generatedPasswordBytes)
		if err != nil {
			return nil, err
		}
		if auth.ValidatePassword(s).Valid {
			return []byte(s), nil
		}
	}
}
