package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ressync-audit-service/internal/audit"
	"ressync-audit-service/internal/forms"

	"github.com/spf13/cobra"
)

// submitFile is the JSON document consumed by the submit command: the
// persisted values of a record and the edited values to reconcile against
// them. For a create, recordId and initial are omitted.
type submitFile struct {
	FormType  string            `json:"formType"`
	RecordID  string            `json:"recordId,omitempty"`
	CSRFToken string            `json:"csrfToken,omitempty"`
	Initial   map[string]string `json:"initial,omitempty"`
	Current   map[string]string `json:"current"`
}

func submitCmd() *cobra.Command {
	var (
		configPath string
		baseURL    string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Reconcile a form document and submit it with its audit payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading form document: %w", err)
			}
			var file submitFile
			if err := json.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parsing form document: %w", err)
			}

			spec, ok := forms.Lookup(file.FormType)
			if !ok {
				return fmt.Errorf("unknown form type %q", file.FormType)
			}

			doc := buildDocument(spec, file)
			submitter := audit.NewHTTPSubmitter(baseURL,
				audit.WithTimeout(cfg.Submission.Timeout()),
				audit.WithMaxRetries(cfg.Submission.MaxRetries),
			)
			reconciler, err := audit.NewReconciler(spec, doc,
				audit.WithSubmitter(submitter),
				audit.WithReasonCollector(audit.ReasonCollectorFunc(
					func(_ context.Context, changes []audit.ChangeRecord) (map[string]string, error) {
						reasons := make(map[string]string, len(changes))
						for _, change := range changes {
							reasons[change.FieldID] = reason
						}
						return reasons, nil
					})),
			)
			if err != nil {
				return err
			}
			reconciler.Prime()
			applyCurrentValues(doc, file.Current)

			result, err := reconciler.Submit(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !result.Success {
				return fmt.Errorf("submission rejected: %s", result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "submission target base URL")
	cmd.Flags().StringVar(&reason, "reason", "", "justification applied to every changed field")

	return cmd
}

// buildDocument materializes a form document from the persisted values,
// typing each control via the form's descriptor table.
func buildDocument(spec *audit.FormSpec, file submitFile) *audit.FormDocument {
	doc := &audit.FormDocument{
		FormType:  file.FormType,
		RecordID:  file.RecordID,
		CSRFToken: file.CSRFToken,
	}
	names := make(map[string]bool, len(file.Initial)+len(file.Current))
	for name := range file.Initial {
		names[name] = true
	}
	for name := range file.Current {
		names[name] = true
	}
	for name := range names {
		doc.AddControl(controlFor(spec, name, file.Initial[name]))
	}
	return doc
}

// applyCurrentValues mutates the document's controls to the edited values,
// mirroring what the user changed between page load and submit.
func applyCurrentValues(doc *audit.FormDocument, current map[string]string) {
	for _, control := range doc.Controls {
		setControlValue(control, current[control.Name])
	}
}

func controlFor(spec *audit.FormSpec, name, value string) *audit.Control {
	control := &audit.Control{Name: name, Type: spec.FieldTypeOf(name)}
	setControlValue(control, value)
	return control
}

func setControlValue(control *audit.Control, value string) {
	switch control.Type {
	case audit.FieldCheckbox:
		control.Checked = audit.ParseCheckedValue(value)
	case audit.FieldRadio:
		control.Value = value
		control.Checked = value != ""
	default:
		control.Value = value
	}
}
