package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mbolis/dynaform/client"
	"github.com/mbolis/dynaform/formstate"
	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/model"
	"github.com/mbolis/dynaform/session"
	"github.com/mbolis/dynaform/submission"
)

func submitCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <form-id>",
		Short: "Fill a form from a values file and submit it",
		Long: `The values file maps section names to field labels to answers:
a string, or a list of options for checkbox groups.

  {"Patient Information": {"Name": "Ash", "Symptoms": ["Fever"]}}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := formID(args[0])
			if err != nil {
				return err
			}
			file, _ := cmd.Flags().GetString("values")
			offline, _ := cmd.Flags().GetBool("offline")
			fallback, _ := cmd.Flags().GetBool("queue-on-error")
			yes, _ := cmd.Flags().GetBool("yes")
			if file == "" {
				return errors.New("--values is required")
			}

			values, err := readValues(file)
			if err != nil {
				return err
			}
			form, s, err := e.client.GetForm(ctx, id)
			if err != nil {
				return err
			}
			st, err := fillStore(s, values)
			if err != nil {
				return err
			}

			var sess session.Session
			if offline {
				sess, err = e.sessions.Load(ctx)
				if err != nil && !errors.Is(err, session.ErrNoSession) {
					return err
				}
			} else if sess, err = e.currentSession(ctx); err != nil {
				return err
			}

			flow := submission.NewFlow(s, st, submission.Meta{
				FormID:    form.ID,
				FormTitle: form.Title,
				Sender:    sess.Sender(),
			})
			if err = flow.Request(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), out, s, flow.Store())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "cancelled")
					return flow.Cancel()
				}
			}

			target := submission.Direct(e.client)
			if offline {
				target = submission.Offline(e.queue)
			}
			err = flow.Confirm(ctx, target)
			if err != nil && !offline && fallback && client.IsNetwork(err) {
				log.WithError(err).Warn("formctl.submit: saving to the offline queue")
				if err = flow.Reset(); err != nil {
					return err
				}
				if err = flow.Request(); err != nil {
					return err
				}
				offline = true
				err = flow.Confirm(ctx, submission.Offline(e.queue))
			}
			if err != nil {
				return err
			}

			if offline {
				fmt.Fprintf(out, "form %d saved offline, run \"formctl queue flush\" to send it\n", form.ID)
			} else {
				fmt.Fprintf(out, "form %d submitted\n", form.ID)
			}
			return nil
		},
	}
	cmd.Flags().String("values", "", "path to the JSON answers")
	cmd.Flags().Bool("offline", false, "save to the local queue instead of posting")
	cmd.Flags().Bool("queue-on-error", false, "save to the local queue when the backend cannot be reached")
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func readValues(file string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	values := map[string]map[string]any{}
	if err = json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(err, "parse %s", file)
	}
	return values, nil
}

// fillStore enters values into a fresh store, as a user would: setting text
// answers and checking options one at a time. Answers for fields s does not
// declare are an error.
func fillStore(s model.Schema, values map[string]map[string]any) (*formstate.Store, error) {
	st := formstate.New(s)
	for section, fields := range values {
		for label, v := range fields {
			var err error
			switch val := v.(type) {
			case nil:
			case string:
				err = st.Set(section, label, val)
			case []any:
				for _, opt := range val {
					str, ok := opt.(string)
					if !ok {
						err = errors.Errorf("%s/%s: option %v is not a string", section, label, opt)
						break
					}
					if err = st.Toggle(section, label, str, true); err != nil {
						break
					}
				}
			case float64, bool:
				err = st.Set(section, label, fmt.Sprint(val))
			default:
				err = errors.Errorf("%s/%s: unsupported answer %v", section, label, v)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return st, nil
}

func confirm(in io.Reader, out io.Writer, s model.Schema, st *formstate.Store) (bool, error) {
	for _, sec := range s.Sections {
		fmt.Fprintf(out, "== %s\n", sec.Key())
		for _, f := range sec.Fields {
			a, _ := st.Get(sec.Key(), f.Key())
			if a.Empty() {
				continue
			}
			if a.Multi {
				fmt.Fprintf(out, "  %s: %s\n", f.Key(), strings.Join(a.Choices, ", "))
			} else {
				fmt.Fprintf(out, "  %s: %s\n", f.Key(), a.Text)
			}
		}
	}
	fmt.Fprint(out, "Submit? [y/N] ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
