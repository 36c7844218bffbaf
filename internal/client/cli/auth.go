package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/client"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var (
	errNotLoggedIn      = errors.New("please log in first")
	errAlreadyLoggedIn  = errors.New("already logged in, log out first")
	errPasswordMismatch = errors.New("passwords do not match")
)

// Signup prompts for the account fields and creates the account. It does
// not log in.
func (a *App) Signup(ctx context.Context) error {
	if a.isLoggedIn() {
		return errAlreadyLoggedIn
	}

	var req models.SignupRequest
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Enter username", &req.Username},
		{"Enter email", &req.Email},
		{"Enter first name", &req.FirstName},
		{"Enter last name", &req.LastName},
	}
	for _, f := range fields {
		v, err := getSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	confirm, err := getPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer wipe(confirm)

	if string(password) != string(confirm) {
		return errPasswordMismatch
	}
	req.Password, req.ConfirmPassword = string(password), string(confirm)

	user, err := a.session.Signup(ctx, req)
	if err != nil {
		return describe(err)
	}

	a.println("Account created for", user.Username+". You can log in now.")
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		return errAlreadyLoggedIn
	}

	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	user, err := a.session.Login(ctx, userName, string(password))
	if err != nil {
		return describe(err)
	}

	a.println("Welcome,", user.DisplayName()+"!")
	return nil
}

// Logout ends the session. It never fails.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	a.session.Logout(ctx)
	a.println("Logged out.")
	return nil
}

// WhoAmI re-fetches the profile and prints it.
func (a *App) WhoAmI(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	user, err := a.session.RefreshUser(ctx)
	if err != nil {
		return describe(err)
	}

	a.println("Username:", user.Username)
	if name := user.DisplayName(); name != user.Username {
		a.println("Name:    ", name)
	}
	if user.Email != "" {
		a.println("Email:   ", user.Email)
	}
	if len(user.Roles) > 0 {
		a.println("Roles:   ", strings.Join(user.Roles, ", "))
	}
	return nil
}

// Status prints the session state, token lifetime and client counters.
func (a *App) Status(ctx context.Context) error {
	st := a.session.State()
	if st.IsAuthenticated {
		a.println("Session:       logged in as", st.User.Username)
	} else {
		a.println("Session:       logged out")
	}

	if ttl := a.info.TimeToExpiry(ctx); ttl > 0 {
		a.println("Access token:  expires in", ttl.Round(time.Second))
	} else {
		a.println("Access token:  none")
	}
	a.println("Refresh:      ", a.info.RefreshState())

	samples, err := a.metrics.Snapshot()
	if err != nil {
		return err
	}
	for _, s := range samples {
		a.println(fmt.Sprintf("%-40s %g", s.Name+labels(s.Labels), s.Value))
	}
	return nil
}

func labels(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// describe turns client errors into messages for the terminal.
func describe(err error) error {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrInvalidCredentials):
		return errors.New("invalid username or password")
	case errors.Is(err, client.ErrUserNotFound):
		return errors.New("no such user")
	case errors.Is(err, client.ErrUsernameTaken):
		return errors.New("that username is already taken")
	case errors.Is(err, client.ErrUnauthorized):
		return errors.New("your session has expired, please log in again")
	case errors.Is(err, client.ErrNetwork):
		return errors.New("server unavailable, try again later")
	case errors.Is(err, client.ErrForbidden):
		return errors.New("you are not allowed to do that")
	case errors.Is(err, client.ErrNotFound):
		return errors.New("not found")
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return errors.New(apiErr.Message)
	}
	return err
}
