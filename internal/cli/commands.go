package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"portfolio/cms/internal/draft"
	"portfolio/cms/internal/editor"
)

func newLoginCommand(o *Options) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token in the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, pass, err := o.IO.askCredentials(username, password)
			if err != nil {
				return err
			}
			client, err := o.client()
			if err != nil {
				return err
			}
			token, err := client.Login(cmd.Context(), user, pass)
			if err != nil {
				return banner(cmd.ErrOrStderr(), nil, err)
			}
			if err := o.Tokens.Save(token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (prompted when empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (prompted when empty)")
	return cmd
}

func newLogoutCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refresh, err := o.Tokens.RefreshToken()
			if err != nil {
				return err
			}
			client, err := o.client()
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context(), refresh); err != nil {
				o.Logger.Warn("server logout failed", "error", err)
			}
			if err := o.Tokens.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newShowCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:       "show [section]",
		Short:     "Print the dashboard, or one section of it",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: sectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			sections := draft.Sections
			if len(args) == 1 {
				section, err := draft.ParseSection(args[0])
				if err != nil {
					return err
				}
				sections = []draft.Section{section}
			}
			ws, err := o.mount(cmd.Context(), nil)
			if err != nil {
				return banner(cmd.ErrOrStderr(), nil, err)
			}
			snap := ws.store.Snapshot()
			for i, section := range sections {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				renderSection(cmd.OutOrStdout(), snap, section)
			}
			return nil
		},
	}
}

func newEditCommand(o *Options) *cobra.Command {
	var sets []string
	var interactive bool
	cmd := &cobra.Command{
		Use:   "edit <section> [index]",
		Short: "Edit an entry, or create one when no index is given",
		Long: `Edit stages the entry at index (or a blank template) and saves it.

Fields are assigned with --set name=value. List fields such as technologies
and skills take comma-separated text. With --interactive every field is
prompted with its current value.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, err := draft.ParseSection(args[0])
			if err != nil {
				return err
			}
			var index *int
			if len(args) == 2 {
				i, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("index must be a number: %q", args[1])
				}
				index = &i
			}
			assignments, err := parseAssignments(sets)
			if err != nil {
				return err
			}

			ws, err := o.mount(cmd.Context(), nil)
			if err != nil {
				return banner(cmd.ErrOrStderr(), nil, err)
			}
			session := ws.session
			if err := session.StartEdit(section, index); err != nil {
				return banner(cmd.ErrOrStderr(), session, err)
			}
			for _, a := range assignments {
				if err := session.Set(a[0], a[1]); err != nil {
					session.Cancel()
					return err
				}
			}
			if interactive {
				if err := promptFields(editor.WithSession(cmd.Context(), session), o.IO); err != nil {
					session.Cancel()
					return err
				}
			}

			target, _ := session.Target()
			if err := session.Save(cmd.Context()); err != nil {
				return banner(cmd.ErrOrStderr(), session, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", describeTarget(target))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "Field assignment name=value (repeatable)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for every field")
	return cmd
}

func newDeleteCommand(o *Options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <section> <index>",
		Short: "Delete a project or experience after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, err := draft.ParseSection(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("index must be a number: %q", args[1])
			}
			confirm := o.Confirm
			if confirm == nil {
				confirm = o.IO.Confirmer()
			}
			if yes {
				confirm = always
			}
			ws, err := o.mount(cmd.Context(), confirm)
			if err != nil {
				return banner(cmd.ErrOrStderr(), nil, err)
			}
			err = ws.session.Delete(cmd.Context(), section, index)
			if errors.Is(err, editor.ErrDeclined) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			if err != nil {
				return banner(cmd.ErrOrStderr(), ws.session, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s[%d]\n", section, index)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newToggleFeaturedCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-featured <project-id>",
		Short: "Flip a project's featured flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("project id must be a number: %q", args[0])
			}
			ws, err := o.mount(cmd.Context(), nil)
			if err != nil {
				return banner(cmd.ErrOrStderr(), nil, err)
			}
			if err := ws.session.ToggleFeatured(cmd.Context(), id); err != nil {
				return banner(cmd.ErrOrStderr(), ws.session, err)
			}
			state := "not featured"
			for _, p := range ws.store.Featured() {
				if p.ID == id {
					state = "featured"
					break
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project %d is now %s\n", id, state)
			return nil
		},
	}
}

func newUploadCommand(o *Options) *cobra.Command {
	var asHero bool
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(args[0])))
			if contentType == "" {
				contentType = http.DetectContentType(data)
			}

			ws, err := o.mount(cmd.Context(), nil)
			if err != nil {
				return banner(cmd.ErrOrStderr(), nil, err)
			}
			url, err := ws.client.Upload(cmd.Context(), filepath.Base(args[0]), contentType, bytes.NewReader(data))
			if err != nil {
				return banner(cmd.ErrOrStderr(), nil, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			if !asHero {
				return nil
			}

			session := ws.session
			if err := session.StartEdit(draft.SectionHero, nil); err != nil {
				return banner(cmd.ErrOrStderr(), session, err)
			}
			if err := session.Set("profile_image", url); err != nil {
				session.Cancel()
				return err
			}
			if err := session.Save(cmd.Context()); err != nil {
				return banner(cmd.ErrOrStderr(), session, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Hero image updated")
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHero, "hero", false, "Use the uploaded image as the hero profile image")
	return cmd
}

func newRefreshCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload every collection from the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := o.mount(cmd.Context(), nil)
			if err != nil {
				return banner(cmd.ErrOrStderr(), nil, err)
			}
			if err := ws.session.Refresh(cmd.Context()); err != nil {
				return banner(cmd.ErrOrStderr(), ws.session, err)
			}
			snap := ws.store.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d projects (%d featured), %d experiences\n",
				len(snap.Projects), len(snap.Featured()), len(snap.Experiences))
			return nil
		},
	}
}

// parseAssignments splits name=value pairs; the value may itself contain '='.
func parseAssignments(sets []string) ([][2]string, error) {
	out := make([][2]string, 0, len(sets))
	for _, raw := range sets {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("--set expects name=value, got %q", raw)
		}
		out = append(out, [2]string{strings.TrimSpace(name), value})
	}
	return out, nil
}

// promptFields walks the draft of the session carried by ctx.
func promptFields(ctx context.Context, prompts SurveyIO) error {
	session, ok := editor.FromContext(ctx)
	if !ok {
		return editor.ErrNotEditing
	}
	staged := session.Draft()
	if staged == nil {
		return editor.ErrNotEditing
	}
	for _, field := range staged.Fields() {
		value, err := prompts.askField(field.Name, field.Value)
		if err != nil {
			return err
		}
		if value == field.Value {
			continue
		}
		if err := session.Set(field.Name, value); err != nil {
			return err
		}
	}
	return nil
}

func describeTarget(t editor.Target) string {
	switch {
	case !t.Section.Listed():
		return string(t.Section)
	case t.IsNew():
		return "new " + string(t.Section.Kind())
	default:
		return fmt.Sprintf("%s %d", t.Section.Kind(), t.ID)
	}
}

func sectionNames() []string {
	out := make([]string, 0, len(draft.Sections))
	for _, s := range draft.Sections {
		out = append(out, string(s))
	}
	return out
}
