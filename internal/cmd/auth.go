package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	authEmail       string
	authPassword    string
	authUsername    string
	authFullName    string
	authLogoutForce bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Sign up, log in, and manage your SocialHub session",
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new SocialHub account",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.SignUp(cmd.Context(), authEmail, authUsername, authFullName, authPassword)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to SocialHub",
	Long:  "Authenticate with your email and password. Missing values are prompted for.",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.Login(cmd.Context(), authEmail, authPassword)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.Logout(cmd.Context(), authLogoutForce)
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Display the current authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.Me(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session without contacting the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.Status()
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.Refresh(cmd.Context())
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Email a password recovery link",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.RecoverPassword(cmd.Context(), authEmail)
	},
}

var changePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change the password of the logged-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		authSvc := service.NewAuthService()
		return authSvc.ChangePassword(cmd.Context())
	},
}

func init() {
	signupCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	signupCmd.Flags().StringVar(&authUsername, "username", "", "Username (3-30 letters, digits, dots or underscores)")
	signupCmd.Flags().StringVar(&authFullName, "full-name", "", "Display name")
	signupCmd.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")

	loginCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")

	logoutCmd.Flags().BoolVarP(&authLogoutForce, "force", "f", false, "Skip confirmation")

	resetPasswordCmd.Flags().StringVar(&authEmail, "email", "", "Email address")

	authCmd.AddCommand(signupCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(meCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(refreshCmd)
	authCmd.AddCommand(resetPasswordCmd)
	authCmd.AddCommand(changePasswordCmd)
}
