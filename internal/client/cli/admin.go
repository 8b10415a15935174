package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

func parseUserID(args []string, usage string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: usage: %s", common.ErrValidation, usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", common.ErrValidation, args[0])
	}
	return id, nil
}

func printUser(w io.Writer, u *models.User) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", u.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", u.FullName())
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Mobile:\t%s\n", u.MobileNumber)
	fmt.Fprintf(tw, "Role:\t%s\n", u.Role)
	fmt.Fprintf(tw, "Verified:\t%t\n", u.IsVerified)
	if u.ProfilePicture != nil {
		fmt.Fprintf(tw, "Picture:\t%s\n", *u.ProfilePicture)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", u.CreatedAt)
	_ = tw.Flush()
}

// ListUsers prints every regular account as a table.
func (a *App) ListUsers(ctx context.Context) error {
	users, err := a.adminService.ListUsers(ctx)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Fprintln(a.out, "No users.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tMOBILE\tVERIFIED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.FullName(), u.Email, u.MobileNumber, u.IsVerified)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d user(s)\n", len(users))
	return nil
}

func (a *App) ShowUser(ctx context.Context, args []string) error {
	id, err := parseUserID(args, "user <id>")
	if err != nil {
		return err
	}

	u, err := a.adminService.GetUser(ctx, id)
	if err != nil {
		return err
	}
	printUser(a.out, u)
	return nil
}

// AddUser creates an already verified account.
func (a *App) AddUser(ctx context.Context) error {
	req, err := a.readRegistration()
	if err != nil {
		return err
	}

	u, err := a.adminService.CreateUser(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User created with id %d.\n", u.ID)
	return nil
}

// EditUser shows each field with its current value; an empty answer keeps it.
func (a *App) EditUser(ctx context.Context, args []string) error {
	id, err := parseUserID(args, "edituser <id>")
	if err != nil {
		return err
	}

	cur, err := a.adminService.GetUser(ctx, id)
	if err != nil {
		return err
	}

	picture := ""
	if cur.ProfilePicture != nil {
		picture = *cur.ProfilePicture
	}

	var req models.UpdateUserRequest
	fields := []struct {
		label   string
		current string
		dst     **string
	}{
		{"First name", cur.FirstName, &req.FirstName},
		{"Last name", cur.LastName, &req.LastName},
		{"Email", cur.Email, &req.Email},
		{"Mobile number", cur.MobileNumber, &req.MobileNumber},
		{"Profile picture URL", picture, &req.ProfilePicture},
	}

	for _, f := range fields {
		v, err := getSimpleText(a.reader, fmt.Sprintf("%s [%s]", f.label, f.current), a.out)
		if err != nil {
			return err
		}
		if v != "" && v != f.current {
			*f.dst = &v
		}
	}

	if req.Empty() {
		fmt.Fprintln(a.out, "Nothing changed.")
		return nil
	}

	u, err := a.adminService.UpdateUser(ctx, id, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %d updated.\n", u.ID)
	return nil
}

func (a *App) DeleteUser(ctx context.Context, args []string) error {
	id, err := parseUserID(args, "deluser <id>")
	if err != nil {
		return err
	}

	ok, err := getConfirmation(a.reader, fmt.Sprintf("Delete user %d?", id), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.adminService.DeleteUser(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %d deleted.\n", id)
	return nil
}
