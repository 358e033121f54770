package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/users"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage login accounts of the web API",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Long: `Create a login account. The password is prompted for unless --password
is given.

Examples:
  attendance user add jane --name "Jane Doe"
  attendance user add root --role admin`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

var userVerifyCmd = &cobra.Command{
	Use:   "verify <username>",
	Short: "Check the password of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserVerify,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd, userAddCmd, userVerifyCmd)

	userAddCmd.Flags().String("role", constants.RoleTeacher, "Role: admin or teacher")
	userAddCmd.Flags().String("name", "", "Display name")
	userAddCmd.Flags().String("password", "", "Password (prompted when empty)")
}

func runUserList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openUsers(cfg)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Username\tRole\tName")
	for _, u := range store.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.Role, u.Name)
	}
	return tw.Flush()
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	role := mustGetString(cmd, "role")
	name := mustGetString(cmd, "name")
	password := mustGetString(cmd, "password")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openUsers(cfg)
	if err != nil {
		return err
	}

	if password == "" {
		if password, err = readPassword("Password: "); err != nil {
			return err
		}
		again, err := readPassword("Repeat password: ")
		if err != nil {
			return err
		}
		if again != password {
			return errors.New("passwords do not match")
		}
	}
	if name == "" {
		name = args[0]
	}

	u, err := store.Add(args[0], password, role, name)
	if err != nil {
		return err
	}
	fmt.Printf("User %s (%s) created\n", u.Username, u.Role)
	return nil
}

func runUserVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openUsers(cfg)
	if err != nil {
		return err
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	u, err := store.Authenticate(args[0], password)
	switch {
	case errors.Is(err, users.ErrInvalidUsername):
		return errors.New("invalid username")
	case errors.Is(err, users.ErrInvalidPassword):
		return errors.New("invalid password")
	case err != nil:
		return err
	}
	fmt.Printf("Welcome, %s!\n", u.Name)
	return nil
}
