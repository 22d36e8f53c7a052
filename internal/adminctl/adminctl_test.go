package adminctl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"github.com/dmitrijs2005/docchat/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvisioner struct {
	email, name, password string
	created               bool
	err                   error
}

func (f *fakeProvisioner) EnsureAdmin(_ context.Context, email, name, password string) (*models.User, bool, error) {
	f.email, f.name, f.password = email, name, password
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.User{ID: "u-1", Email: email, Role: "admin"}, f.created, nil
}

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("no more input")
		}
		i++
		return []byte(answers[i-1]), nil
	}
}

func TestParseOptions(t *testing.T) {
	o, err := ParseOptions([]string{"-d", "postgres://x", "-email", "a@b.co", "-name=Root", "-generate", "-s", "secret"})
	require.NoError(t, err)
	assert.Equal(t, Options{Email: "a@b.co", Name: "Root", Generate: true}, o)

	o, err = ParseOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, Options{}, o)
}

func TestRun_PromptsForEmailAndPassword(t *testing.T) {
	stubPasswords(t, "adminpass1", "adminpass1")
	p := &fakeProvisioner{created: true}
	var out bytes.Buffer

	err := Run(context.Background(), p, Options{Name: "Root"}, bufio.NewReader(strings.NewReader("root@example.com\n")), &out)
	require.NoError(t, err)

	assert.Equal(t, "root@example.com", p.email)
	assert.Equal(t, "Root", p.name)
	assert.Equal(t, "adminpass1", p.password)
	assert.Contains(t, out.String(), "Created admin account root@example.com (u-1)")
	assert.NotContains(t, out.String(), "Password:")
}

func TestRun_Promoted(t *testing.T) {
	stubPasswords(t, "adminpass1", "adminpass1")
	p := &fakeProvisioner{}
	var out bytes.Buffer

	err := Run(context.Background(), p, Options{Email: "old@example.com"}, bufio.NewReader(strings.NewReader("")), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Promoted old@example.com (u-1) to admin")
}

func TestRun_PasswordMismatch(t *testing.T) {
	stubPasswords(t, "adminpass1", "adminpass2")
	p := &fakeProvisioner{}

	err := Run(context.Background(), p, Options{Email: "a@example.com"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	require.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Empty(t, p.email, "provisioner must not be called")
}

func TestRun_GeneratePrintsPassword(t *testing.T) {
	stubPasswords(t)
	p := &fakeProvisioner{created: true}
	var out bytes.Buffer

	err := Run(context.Background(), p, Options{Email: "gen@example.com", Generate: true}, bufio.NewReader(strings.NewReader("")), &out)
	require.NoError(t, err)

	require.Len(t, p.password, 2*generatedPasswordBytes)
	assert.True(t, auth.ValidatePassword(p.password).Valid)
	assert.Contains(t, out.String(), "Password: "+p.password)
}

func TestRun_ValidationMessage(t *testing.T) {
	stubPasswords(t, "adminpass1", "adminpass1")
	p := &fakeProvisioner{err: common.NewValidationError("email", "Please provide a valid email")}

	err := Run(context.Background(), p, Options{Email: "nope"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	require.EqualError(t, err, "Please provide a valid email")
}

func TestRun_BackendError(t *testing.T) {
	stubPasswords(t, "adminpass1", "adminpass1")
	p := &fakeProvisioner{err: common.ErrorInternal}

	err := Run(context.Background(), p, Options{Email: "a@example.com"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrorInternal)
}
