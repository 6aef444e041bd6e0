package crm

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/kballard/go-shellquote"
	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rasto/lcmc-sub002/pkg/metrics"
	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/rs/zerolog"
)

// ShadowCIB is the shadow CIB test-only commands are applied to
const ShadowCIB = "lcmc-dry-run"

// Batch is a list of commands sent to one host for one operation
type Batch struct {
	Host      string
	Operation string
	Commands  []string
	TestOnly  bool
	Err       error
}

// Client implements CommandSink with cibadmin commands
type Client struct {
	exec     Executor
	logger   zerolog.Logger
	recorder func(*Batch)
}

var _ CommandSink = (*Client)(nil)

// NewClient creates a CRM client on top of exec
func NewClient(exec Executor) *Client {
	return &Client{
		exec:   exec,
		logger: log.WithComponent("crm"),
	}
}

// OnBatch registers a callback that sees every executed batch
func (c *Client) OnBatch(fn func(*Batch)) {
	c.recorder = fn
}

func cibadmin(op, objType, x string) string {
	return shellquote.Join("cibadmin", op, "--obj_type", objType, "-X", x)
}

func (c *Client) run(ctx context.Context, batch *Batch) error {
	commands := batch.Commands
	if batch.TestOnly {
		commands = make([]string, 0, len(batch.Commands)+2)
		commands = append(commands, shellquote.Join("crm_shadow", "--batch", "--force", "--create", ShadowCIB))
		for _, cmd := range batch.Commands {
			commands = append(commands, "CIB_shadow="+ShadowCIB+" "+cmd)
		}
		commands = append(commands, "CIB_shadow="+ShadowCIB+" "+shellquote.Join("crm_simulate", "--simulate", "--live-check"))
		batch.Commands = commands
	}

	defer func() {
		if c.recorder != nil {
			c.recorder(batch)
		}
	}()

	for _, cmd := range commands {
		res, err := c.exec.Execute(ctx, batch.Host, cmd)
		if err != nil {
			metrics.CRMCommandsTotal.WithLabelValues(batch.Operation, "error").Inc()
			c.logger.Error().Err(err).
				Str("host", batch.Host).
				Str("command", cmd).
				Msg("Failed to execute CRM command")
			batch.Err = fmt.Errorf("%s on %s: %w", batch.Operation, batch.Host, err)
			return batch.Err
		}
		if res.ExitCode != 0 {
			metrics.CRMCommandsTotal.WithLabelValues(batch.Operation, "error").Inc()
			c.logger.Error().
				Str("host", batch.Host).
				Str("command", cmd).
				Str("stdout", res.Stdout).
				Str("stderr", res.Stderr).
				Int("exit_code", res.ExitCode).
				Msg("CRM command failed")
			batch.Err = fmt.Errorf("%w: %s on %s exited %d: %s", ErrCommandFailed, batch.Operation, batch.Host, res.ExitCode, res.Stderr)
			return batch.Err
		}
		metrics.CRMCommandsTotal.WithLabelValues(batch.Operation, "ok").Inc()
	}

	c.logger.Debug().
		Str("host", batch.Host).
		Str("operation", batch.Operation).
		Bool("test_only", batch.TestOnly).
		Int("commands", len(commands)).
		Msg("CRM batch executed")
	return nil
}

func constraintCommand(kind types.ConstraintKind, id string, create bool, sets []*types.ResourceSet, attrs map[string]string) (string, error) {
	x, ok, err := rscSetConstraintXML(kind, id, sets, attrs)
	if err != nil {
		return "", err
	}
	if !ok {
		if create {
			return "", nil
		}
		// Every set became empty: the constraint goes away.
		name := "rsc_order"
		if kind == types.ConstraintColocation {
			name = "rsc_colocation"
		}
		x, err = elementXML(name, id)
		if err != nil {
			return "", err
		}
		return cibadmin("--delete", "constraints", x), nil
	}
	if create {
		return cibadmin("--create", "constraints", x), nil
	}
	return cibadmin("--replace", "constraints", x), nil
}

// SetRscSet creates or replaces the resource-set colocation and order
// constraints of req in one batch.
func (c *Client) SetRscSet(ctx context.Context, req *SetRscSetRequest) error {
	batch := &Batch{Host: req.Host, Operation: "set_rsc_set", TestOnly: req.TestOnly}

	if req.ColID != "" {
		cmd, err := constraintCommand(types.ConstraintColocation, req.ColID, req.CreateCol, req.ColSets, req.Attrs)
		if err != nil {
			return err
		}
		if cmd != "" {
			batch.Commands = append(batch.Commands, cmd)
		}
	}
	if req.OrdID != "" {
		cmd, err := constraintCommand(types.ConstraintOrder, req.OrdID, req.CreateOrd, req.OrdSets, req.Attrs)
		if err != nil {
			return err
		}
		if cmd != "" {
			batch.Commands = append(batch.Commands, cmd)
		}
	}
	if len(batch.Commands) == 0 {
		return ErrEmptyRequest
	}
	return c.run(ctx, batch)
}

// ReplaceGroup creates or replaces a group and its clone in one command
func (c *Client) ReplaceGroup(ctx context.Context, req *ReplaceGroupRequest) error {
	if req.GroupID == "" || len(req.Members) == 0 {
		return ErrEmptyRequest
	}
	x, err := groupXML(req)
	if err != nil {
		return err
	}
	op := "--replace"
	if req.CreateGroup {
		op = "--create"
	}
	return c.run(ctx, &Batch{
		Host:      req.Host,
		Operation: "replace_group",
		Commands:  []string{cibadmin(op, "resources", x)},
		TestOnly:  req.TestOnly,
	})
}

// SetOrderAndColocation creates a plain colocation and order pair
func (c *Client) SetOrderAndColocation(ctx context.Context, req *OrderAndColocationRequest) error {
	batch := &Batch{Host: req.Host, Operation: "set_order_and_colocation", TestOnly: req.TestOnly}
	score := req.Score
	if score == "" {
		score = ScoreInfinity
	}

	if !req.SkipColocation {
		attrs := []xml.Attr{
			{Name: xml.Name{Local: "rsc"}, Value: req.Rsc},
			{Name: xml.Name{Local: "with-rsc"}, Value: req.WithRsc},
			{Name: xml.Name{Local: "score"}, Value: score},
		}
		if req.RscRole != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "rsc-role"}, Value: req.RscRole})
		}
		if req.WithRscRole != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "with-rsc-role"}, Value: req.WithRscRole})
		}
		x, err := elementXML("rsc_colocation", req.ColID, attrs...)
		if err != nil {
			return err
		}
		batch.Commands = append(batch.Commands, cibadmin("--create", "constraints", x))
	}
	if !req.SkipOrder {
		attrs := []xml.Attr{
			{Name: xml.Name{Local: "first"}, Value: req.WithRsc},
			{Name: xml.Name{Local: "then"}, Value: req.Rsc},
			{Name: xml.Name{Local: "score"}, Value: score},
		}
		if req.FirstAction != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "first-action"}, Value: req.FirstAction})
		}
		if req.ThenAction != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "then-action"}, Value: req.ThenAction})
		}
		x, err := elementXML("rsc_order", req.OrdID, attrs...)
		if err != nil {
			return err
		}
		batch.Commands = append(batch.Commands, cibadmin("--create", "constraints", x))
	}
	if len(batch.Commands) == 0 {
		return ErrEmptyRequest
	}
	return c.run(ctx, batch)
}

// RemoveOrder deletes an order constraint
func (c *Client) RemoveOrder(ctx context.Context, host, ordID string, testOnly bool) error {
	return c.removeElement(ctx, host, "remove_order", "constraints", "rsc_order", ordID, testOnly)
}

// RemoveColocation deletes a colocation constraint
func (c *Client) RemoveColocation(ctx context.Context, host, colID string, testOnly bool) error {
	return c.removeElement(ctx, host, "remove_colocation", "constraints", "rsc_colocation", colID, testOnly)
}

// RemoveResource deletes a resource element of the kind of rsc
func (c *Client) RemoveResource(ctx context.Context, host string, rsc *types.Resource, testOnly bool) error {
	var name string
	switch rsc.Kind {
	case types.ResourceKindGroup:
		name = "group"
	case types.ResourceKindClone:
		name = "clone"
		if rsc.IsMaster {
			name = "master"
		}
	case types.ResourceKindPlaceholder:
		return fmt.Errorf("placeholder %s has no cib element", rsc.ID)
	default:
		name = "primitive"
	}
	return c.removeElement(ctx, host, "remove_resource", "resources", name, rsc.ID, testOnly)
}

func (c *Client) removeElement(ctx context.Context, host, op, objType, name, id string, testOnly bool) error {
	if id == "" {
		return ErrEmptyRequest
	}
	x, err := elementXML(name, id)
	if err != nil {
		return err
	}
	return c.run(ctx, &Batch{
		Host:      host,
		Operation: op,
		Commands:  []string{cibadmin("--delete", objType, x)},
		TestOnly:  testOnly,
	})
}
