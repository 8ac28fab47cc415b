package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mbolis/dynaform/model"
	"github.com/mbolis/dynaform/schema"
)

func formID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid form id %q", arg)
	}
	return id, nil
}

func formsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Browse and manage forms",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the forms on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			forms, err := e.client.ListForms(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tUPDATED")
			for _, f := range forms {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.ID, f.Title, f.Status, f.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a form and its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := formID(args[0])
			if err != nil {
				return err
			}
			form, s, err := e.client.GetForm(cmd.Context(), id)
			if err != nil {
				return err
			}
			printForm(cmd.OutOrStdout(), form, s)
			return nil
		},
	})

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a form from a schema file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			file, _ := cmd.Flags().GetString("schema")
			if title == "" || file == "" {
				return errors.New("--title and --schema are required")
			}
			text, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			s, err := schema.Parse(string(text))
			if err != nil {
				return err
			}

			var template *int
			if cmd.Flags().Changed("template") {
				id, _ := cmd.Flags().GetInt("template")
				template = &id
			}

			if _, err = e.currentSession(cmd.Context()); err != nil {
				return err
			}
			form, err := e.client.CreateForm(cmd.Context(), title, description, s, template)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "form %d created\n", form.ID)
			return nil
		},
	}
	create.Flags().String("title", "", "form title")
	create.Flags().String("description", "", "form description")
	create.Flags().String("schema", "", "path to the JSON schema")
	create.Flags().Int("template", 0, "id of the template the form is built from")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a form to another status",
		Long:  "Statuses: Not Started, In Progress, Under Review, Completed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := formID(args[0])
			if err != nil {
				return err
			}
			status := model.Status(args[1])
			if !status.Valid() {
				return errors.Errorf("invalid status %q", args[1])
			}

			if _, err = e.currentSession(cmd.Context()); err != nil {
				return err
			}
			form, err := e.client.SetStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "form %d is now %s\n", form.ID, form.Status)
			return nil
		},
	})

	return cmd
}

func printForm(w io.Writer, form model.Form, s model.Schema) {
	fmt.Fprintf(w, "%s [%s]\n", form.Title, form.Status)
	if form.Description != "" {
		fmt.Fprintln(w, form.Description)
	}
	for _, sec := range s.Sections {
		fmt.Fprintf(w, "\n== %s\n", sec.Key())
		for _, f := range sec.Fields {
			mark := " "
			if f.Required {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %s (%s)", mark, f.Key(), f.Type)
			if len(f.Options) > 0 {
				fmt.Fprintf(w, ": %s", strings.Join(f.Options, " | "))
			}
			fmt.Fprintln(w)
		}
	}
}

func templatesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Browse form templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the templates on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := e.client.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTITLE")
			for _, t := range templates {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, t.Name, t.Title)
			}
			return tw.Flush()
		},
	})

	return cmd
}
