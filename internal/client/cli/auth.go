package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getConfirmation = GetConfirmation

// prompt reads one answer per label, in order.
func (a *App) prompt(labels ...string) ([]string, error) {
	answers := make([]string, len(labels))
	for i, label := range labels {
		v, err := getSimpleText(a.reader, label, a.out)
		if err != nil {
			return nil, err
		}
		answers[i] = v
	}
	return answers, nil
}

// readSecret asks for a password and returns it as a string, wiping the
// raw bytes.
func (a *App) readSecret() (string, error) {
	pw, err := getPassword(a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// readRegistration prompts for the fields shared by self registration and
// admin user creation.
func (a *App) readRegistration() (models.RegisterRequest, error) {
	v, err := a.prompt("First name", "Last name", "Email", "Mobile number", "Profile picture URL (optional)")
	if err != nil {
		return models.RegisterRequest{}, err
	}
	password, err := a.readSecret()
	if err != nil {
		return models.RegisterRequest{}, err
	}

	req := models.RegisterRequest{
		FirstName:    v[0],
		LastName:     v[1],
		Email:        v[2],
		MobileNumber: v[3],
		Password:     password,
	}
	if v[4] != "" {
		req.ProfilePicture = &v[4]
	}
	return req, nil
}

// Register creates an account and tells the user to verify it.
func (a *App) Register(ctx context.Context) error {
	req, err := a.readRegistration()
	if err != nil {
		return err
	}

	msg, err := a.authService.Register(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, msg)
	fmt.Fprintln(a.out, "Run 'verify' with the code from the email to activate the account.")
	return nil
}

// Verify confirms an account with the emailed OTP code.
func (a *App) Verify(ctx context.Context) error {
	v, err := a.prompt("Email", "Verification code")
	if err != nil {
		return err
	}

	msg, err := a.authService.VerifyOTP(ctx, v[0], v[1])
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, msg)
	return nil
}

// Login prompts for credentials, authenticates and reports where the user
// landed. The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readSecret()
	if err != nil {
		return err
	}

	u, err := a.authService.Login(ctx, email, password)
	if err != nil {
		a.log.Info(ctx, "login unsuccessful", "error", err)
		return err
	}

	a.log.Info(ctx, "login successful", "user_id", u.ID)
	fmt.Fprintf(a.out, "Welcome, %s! You are in the %s area.\n", u.FullName(), a.landing())
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, ok := a.authService.CurrentUser()
	if !ok {
		return fmt.Errorf("not logged in")
	}
	printUser(a.out, u)
	return nil
}

// Refresh rotates the access token immediately.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Access token refreshed.")
	return nil
}

// Logout destroys the local credential record.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
