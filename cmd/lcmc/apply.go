package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rasto/lcmc-sub002/pkg/manager"
	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Add resources and placeholders from a session file",
	Long: `Add resources and constraint placeholders from a YAML session file.
A file may hold several documents separated by "---". Entries that already
exist in the session are skipped.

Examples:
  # Add a group of primitives
  lcmc apply -f web-group.yaml

  # Add placeholders
  lcmc apply -f placeholders.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// SessionDocument is one entry of a session file
type SessionDocument struct {
	Kind     string           `yaml:"kind"`
	Metadata DocumentMetadata `yaml:"metadata"`
	Spec     DocumentSpec     `yaml:"spec"`
}

type DocumentMetadata struct {
	Name string `yaml:"name"`
}

type DocumentSpec struct {
	// Primitive
	Class      string                       `yaml:"class,omitempty"`
	Provider   string                       `yaml:"provider,omitempty"`
	Type       string                       `yaml:"type,omitempty"`
	Operations map[string]map[string]string `yaml:"operations,omitempty"`

	Params    map[string]string `yaml:"params,omitempty"`
	MetaAttrs map[string]string `yaml:"metaAttrs,omitempty"`

	// Group
	Children []SessionDocument `yaml:"children,omitempty"`

	// Clone
	Master bool             `yaml:"master,omitempty"`
	Wraps  *SessionDocument `yaml:"wraps,omitempty"`

	// Placeholder
	Preference string `yaml:"preference,omitempty"`
}

// parseSessionFile decodes every document of a session file
func parseSessionFile(r io.Reader) ([]SessionDocument, error) {
	dec := yaml.NewDecoder(r)
	var docs []SessionDocument
	for {
		var doc SessionDocument
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %v", err)
		}
		if doc.Kind == "" {
			continue
		}
		docs = append(docs, doc)
	}
}

// toResource converts a Primitive, Group or Clone document
func toResource(doc *SessionDocument) (*types.Resource, error) {
	name := doc.Metadata.Name
	if name == "" {
		return nil, fmt.Errorf("%s without metadata.name", doc.Kind)
	}
	rsc := &types.Resource{
		ID:        name,
		IsNew:     true,
		Params:    doc.Spec.Params,
		MetaAttrs: doc.Spec.MetaAttrs,
	}

	switch strings.ToLower(doc.Kind) {
	case "primitive":
		if doc.Spec.Type == "" {
			return nil, fmt.Errorf("primitive %s: spec.type is required", name)
		}
		rsc.Kind = types.ResourceKindPrimitive
		rsc.Class = doc.Spec.Class
		rsc.Provider = doc.Spec.Provider
		rsc.Type = doc.Spec.Type
		rsc.Operations = doc.Spec.Operations
	case "group":
		rsc.Kind = types.ResourceKindGroup
		for i := range doc.Spec.Children {
			child := &doc.Spec.Children[i]
			if !strings.EqualFold(child.Kind, "primitive") {
				return nil, fmt.Errorf("group %s: child %s must be a primitive", name, child.Metadata.Name)
			}
			c, err := toResource(child)
			if err != nil {
				return nil, err
			}
			rsc.Children = append(rsc.Children, c)
		}
	case "clone":
		if doc.Spec.Wraps == nil {
			return nil, fmt.Errorf("clone %s: spec.wraps is required", name)
		}
		contained, err := toResource(doc.Spec.Wraps)
		if err != nil {
			return nil, err
		}
		if contained.Kind == types.ResourceKindClone {
			return nil, fmt.Errorf("clone %s cannot wrap a clone", name)
		}
		rsc.Kind = types.ResourceKindClone
		rsc.IsMaster = doc.Spec.Master
		rsc.Contained = contained
	default:
		return nil, fmt.Errorf("unsupported resource kind: %s", doc.Kind)
	}
	return rsc, nil
}

func parsePreference(s string) (types.Preference, error) {
	switch strings.ToUpper(s) {
	case "", string(types.PreferenceAnd):
		return types.PreferenceAnd, nil
	case string(types.PreferenceOr):
		return types.PreferenceOr, nil
	}
	return "", fmt.Errorf("preference must be AND or OR, got %q", s)
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}
	defer f.Close()

	docs, err := parseSessionFile(f)
	if err != nil {
		return err
	}

	mgr, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(mgr)

	out := cmd.OutOrStdout()
	for i := range docs {
		if err := applyDocument(mgr, &docs[i], out); err != nil {
			return err
		}
	}
	return nil
}

func applyDocument(mgr *manager.Manager, doc *SessionDocument, out io.Writer) error {
	name := doc.Metadata.Name

	if strings.EqualFold(doc.Kind, "placeholder") {
		if _, ok := mgr.Placeholder(name); ok && name != "" {
			fmt.Fprintf(out, "Placeholder already exists: %s (skipping)\n", name)
			return nil
		}
		pref, err := parsePreference(doc.Spec.Preference)
		if err != nil {
			return err
		}
		ph, err := mgr.AddPlaceholder(name, pref)
		if err != nil {
			return fmt.Errorf("failed to add placeholder: %v", err)
		}
		fmt.Fprintf(out, "✓ Placeholder added: %s (%s)\n", ph.ID(), pref)
		return nil
	}

	rsc, err := toResource(doc)
	if err != nil {
		return err
	}
	if _, ok := mgr.Resource(rsc.ID); ok {
		fmt.Fprintf(out, "Resource already exists: %s (skipping)\n", rsc.ID)
		return nil
	}
	if err := mgr.AddResource(rsc); err != nil {
		return fmt.Errorf("failed to add resource: %v", err)
	}
	fmt.Fprintf(out, "✓ %s added: %s\n", rsc.Kind, rsc.ID)
	return nil
}
