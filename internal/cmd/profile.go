package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	profileFullName string
	profileBio      string
	profileWebsite  string
	profileLocation string
	profileAvatar   string
	profileCover    string
	profileSink     string
	profileNoTUI    bool

	profilePostsPage     int
	profilePostsPageSize int
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile commands",
	Long:  "View and edit user profiles",
}

var profileViewCmd = &cobra.Command{
	Use:   "view [username]",
	Short: "View a profile (yours when no username is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := ""
		if len(args) == 1 {
			username = args[0]
		}
		profileSvc := service.NewProfileService()
		return profileSvc.ViewProfile(cmd.Context(), username)
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your profile",
	Long:  "Update profile fields. With no flags every text field is prompted for.",
	RunE: func(cmd *cobra.Command, args []string) error {
		u := service.ProfileUpdate{
			AvatarPath: profileAvatar,
			CoverPath:  profileCover,
		}
		flags := cmd.Flags()
		if flags.Changed("full-name") {
			u.FullName = &profileFullName
		}
		if flags.Changed("bio") {
			u.Bio = &profileBio
		}
		if flags.Changed("website") {
			u.Website = &profileWebsite
		}
		if flags.Changed("location") {
			u.Location = &profileLocation
		}

		profileSvc := service.NewProfileService()
		return profileSvc.UpdateProfile(cmd.Context(), u, service.UploadOptions{Sink: profileSink, NoTUI: profileNoTUI})
	},
}

var profilePostsCmd = &cobra.Command{
	Use:   "posts <username>",
	Short: "List a user's posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		postSvc := service.NewPostService()
		return postSvc.ListUserPosts(cmd.Context(), args[0], profilePostsPage, profilePostsPageSize)
	},
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileFullName, "full-name", "", "Display name")
	profileUpdateCmd.Flags().StringVar(&profileBio, "bio", "", "Short bio")
	profileUpdateCmd.Flags().StringVar(&profileWebsite, "website", "", "Website URL")
	profileUpdateCmd.Flags().StringVar(&profileLocation, "location", "", "Location")
	profileUpdateCmd.Flags().StringVar(&profileAvatar, "avatar", "", "Image file to upload as your avatar")
	profileUpdateCmd.Flags().StringVar(&profileCover, "cover", "", "Image file to upload as your cover")
	addUploadFlags(profileUpdateCmd, &profileSink, &profileNoTUI)

	addPageFlags(profilePostsCmd, &profilePostsPage, &profilePostsPageSize, 10)

	profileCmd.AddCommand(profileViewCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profilePostsCmd)
}
