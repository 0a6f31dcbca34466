package main

import (
	"github.com/spf13/cobra"

	"github.com/sumire/issuedesk/internal/domain"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "Show your latest notifications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		list, err := api.Notifications(ctx)
		if err != nil {
			return err
		}
		unread, err := api.UnreadCount(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			ui.Info("No notifications")
			return nil
		}
		ui.Notifications(list)
		ui.Info("%d unread", unread)
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		if _, err := api.MarkRead(cmd.Context(), args[0]); err != nil {
			return err
		}
		ui.Success("Marked as read")
		return nil
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		n, err := api.MarkAllRead(cmd.Context())
		if err != nil {
			return err
		}
		ui.Success("Marked %d notifications as read", n)
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		users, err := api.Users(cmd.Context())
		if err != nil {
			return err
		}
		ui.Users(users)
		return nil
	},
}

var usersRoleCmd = &cobra.Command{
	Use:   "role <user-id> <user|technician|admin>",
	Short: "Change a user's role (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		user, err := api.UpdateRole(cmd.Context(), args[0], domain.Role(args[1]))
		if err != nil {
			return err
		}
		ui.Success("%s is now %s", user.DisplayName, user.Role)
		return nil
	},
}

func init() {
	notificationsCmd.AddCommand(notificationsReadCmd, notificationsReadAllCmd)
	usersCmd.AddCommand(usersRoleCmd)
	rootCmd.AddCommand(notificationsCmd, usersCmd)
}
