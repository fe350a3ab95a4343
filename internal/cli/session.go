package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func sessionCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage counting sessions",
	}
	cmd.AddCommand(sessionCreateCmd(st), sessionListCmd(st), sessionShowCmd(st), sessionDeleteCmd(st), sessionRenameCmd(st))
	return cmd
}

// session create <name>: печатает ID новой сессии.
func sessionCreateCmd(st *state) *cobra.Command {
	var objectType string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := st.app.SessionService.CreateSession(cmd.Context(), args[0], objectType)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&objectType, "object-type", "", "what is being counted (e.g. bottles)")
	return cmd
}

func sessionListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tOBJECTS\tIMAGES\tTOTAL\tCREATED")
			for _, s := range st.app.SessionService.ListSessions(cmd.Context()) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", s.ID, s.Name, s.ObjectLabel(), len(s.Images), s.TotalCount, s.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func sessionShowCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "show <sessionID>",
		Short: "Print a session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := st.app.ExportService.ExportJSON(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func sessionDeleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <sessionID>",
		Short: "Delete a session (no-op if it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.app.SessionService.DeleteSession(cmd.Context(), args[0])
		},
	}
}

func sessionRenameCmd(st *state) *cobra.Command {
	var objectType string
	cmd := &cobra.Command{
		Use:   "rename <sessionID> <name>",
		Short: "Rename a session and optionally change the counted object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := st.app.SessionService.GetSession(cmd.Context(), args[0])
			if ok && !cmd.Flags().Changed("object-type") {
				objectType = s.ObjectType
			}
			s, err := st.app.SessionService.RenameSession(cmd.Context(), args[0], args[1], objectType)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
				ID         string `json:"id"`
				Name       string `json:"name"`
				ObjectType string `json:"objectType,omitempty"`
			}{s.ID, s.Name, s.ObjectType})
		},
	}
	cmd.Flags().StringVar(&objectType, "object-type", "", "what is being counted")
	return cmd
}
