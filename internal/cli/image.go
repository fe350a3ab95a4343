package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func imageCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Add or remove counted photos",
	}
	cmd.AddCommand(imageAddCmd(st), imageRemoveCmd(st))
	return cmd
}

// image add <sessionID> <path> --count n: записывает готовый счёт без проверки.
func imageAddCmd(st *state) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "add <sessionID> <photoPath>",
		Short: "Record a photo with an already known count",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := st.app.SessionService.AddImageToSession(cmd.Context(), args[0], args[1], count, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), img.ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of objects on the photo")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func imageRemoveCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <sessionID> <imageID>",
		Short: "Remove a photo from a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.app.SessionService.RemoveImageFromSession(cmd.Context(), args[0], args[1])
		},
	}
}
