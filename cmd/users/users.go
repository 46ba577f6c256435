// Package users создает пользователей из командной строки.
package users

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/cmd/internal/cli"
	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/forms"
	"github.com/UkralStul/yatube/internal/storage"
)

const (
	usernameFlag = "username"
	passwordFlag = "password"
	emailFlag    = "email"
	staffFlag    = "staff"
)

var createFlags = map[string]cobraflags.Flag{
	usernameFlag: &cobraflags.StringFlag{
		Name:  usernameFlag,
		Value: "",
		Usage: "Username (required)",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Value: "",
		Usage: "Password (required)",
	},
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Value: "",
		Usage: "E-mail for password reset",
	},
	staffFlag: &cobraflags.StringFlag{
		Name:  staffFlag,
		Value: "no",
		Usage: "Mark the user as staff (yes or no)",
	},
}

// CreateInput - значения флагов users create.
type CreateInput struct {
	Username string
	Password string
	Email    string
	Staff    bool
}

func NewUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			staff, err := cli.ParseYes(staffFlag, createFlags[staffFlag].GetString())
			if err != nil {
				return err
			}
			env, err := cli.Open("")
			if err != nil {
				return err
			}
			defer env.Close()

			svc := auth.NewService(env.Store, auth.Options{
				Secret:     []byte(env.Config.SecretKey),
				SessionTTL: env.Config.SessionTTL,
			}, env.Log)
			return Create(cmd.Context(), env.Store, svc, cmd.OutOrStdout(), CreateInput{
				Username: createFlags[usernameFlag].GetString(),
				Password: createFlags[passwordFlag].GetString(),
				Email:    createFlags[emailFlag].GetString(),
				Staff:    staff,
			})
		},
	}
	cobraflags.RegisterMap(createCmd, createFlags)

	cmd.AddCommand(createCmd)
	return cmd
}

// Create проверяет данные по правилам формы регистрации и создает пользователя.
func Create(ctx context.Context, users storage.Storage, svc *auth.Service, out io.Writer, in CreateInput) error {
	form := &forms.SignupForm{
		Username:  forms.NormalizeUsername(in.Username),
		Email:     strings.TrimSpace(in.Email),
		Password1: in.Password,
		Password2: in.Password,
		Errors:    forms.Errors{},
	}
	ok, err := form.Validate(ctx, users)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invalid user: %s", describeErrors(form.Errors))
	}

	user, err := svc.Register(ctx, &domain.User{
		Username: form.Username,
		Email:    form.Email,
		IsStaff:  in.Staff,
	}, in.Password)
	if err != nil {
		return err
	}

	kind := "user"
	if user.IsStaff {
		kind = "staff user"
	}
	fmt.Fprintf(out, "Created %s %q (id %d)\n", kind, user.Username, user.ID)
	return nil
}

func describeErrors(errs forms.Errors) string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		name := field
		if name == "password2" {
			name = passwordFlag
		}
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(errs[field], " ")))
	}
	return strings.Join(parts, "; ")
}
