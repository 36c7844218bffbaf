package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/client"
	"github.com/dmitrijs2005/coffeedia/internal/client/metrics"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/client/session"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

type fakeSession struct {
	state session.State

	loginUser  *models.User
	loginErr   error
	signupErr  error
	refreshErr error

	logins  []string
	signups []models.SignupRequest
	inits   int
	logouts int
	closed  bool
}

func (f *fakeSession) State() session.State { return f.state }
func (f *fakeSession) Init(ctx context.Context) {
	f.inits++
	f.state.IsLoading = false
}

func (f *fakeSession) Login(ctx context.Context, username, password string) (*models.User, error) {
	f.logins = append(f.logins, username+":"+password)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.state = session.State{IsAuthenticated: true, User: f.loginUser}
	return f.loginUser, nil
}

func (f *fakeSession) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	f.signups = append(f.signups, req)
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &models.User{Username: req.Username}, nil
}

func (f *fakeSession) Logout(ctx context.Context) {
	f.logouts++
	f.state = session.State{}
}

func (f *fakeSession) RefreshUser(ctx context.Context) (*models.User, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.state.User, nil
}

func (f *fakeSession) Close() { f.closed = true }

type fakeInfo struct {
	ttl   time.Duration
	state client.RefreshState
}

func (f fakeInfo) TimeToExpiry(context.Context) time.Duration { return f.ttl }
func (f fakeInfo) RefreshState() client.RefreshState           { return f.state }

func loggedInAs(id int64, username string) session.State {
	return session.State{IsAuthenticated: true, User: &models.User{ID: id, Username: username}}
}

func newTestApp(t *testing.T, input string, sess *fakeSession) (*App, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &App{
		session: sess,
		info:    fakeInfo{},
		catalog: map[string]collection{},
		metrics: metrics.New(),
		log:     logging.Discard(),
		reader:  bufio.NewReader(strings.NewReader(input)),
		out:     out,
	}, out
}

// stubInput replaces the prompt helpers: text answers come from the app's
// reader as usual, passwords from the given list.
func stubPasswords(t *testing.T, passwords ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })

	getPassword = func(prompt string, w io.Writer) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		pw := passwords[0]
		passwords = passwords[1:]
		return []byte(pw), nil
	}
}
