package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/corewell/noderepo/internal/bundle"
	"github.com/corewell/noderepo/internal/hierarchy"
	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/pathutil"
	"github.com/corewell/noderepo/internal/store"
)

// verbose is set via -v/--verbose, declared directly against the
// underlying pflag.FlagSet cobra wraps rather than cobra's own Flags()
// sugar, the way erigon's CLI registers shared flags.
var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "noderepo-inspect",
		Short:             "Inspect a noderepo bbolt-backed node store",
		PersistentPreRunE: initLogging,
	}
	fs := pflag.NewFlagSet("noderepo-inspect", pflag.ContinueOnError)
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().AddFlagSet(fs)
	root.AddCommand(newDumpCmd(), newVerifyCmd(), newWalkCmd())
	return root
}

// parseNodeID parses the "msb-lsb" hex form NodeId.String() produces.
func parseNodeID(s string) (itemstate.NodeId, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return itemstate.NodeId{}, fmt.Errorf("invalid node id %q, want <msb-hex>-<lsb-hex>", s)
	}
	msb, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return itemstate.NodeId{}, fmt.Errorf("invalid node id msb %q: %w", parts[0], err)
	}
	lsb, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return itemstate.NodeId{}, fmt.Errorf("invalid node id lsb %q: %w", parts[1], err)
	}
	return itemstate.NodeId{MSB: msb, LSB: lsb}, nil
}

// parsePath parses a "/a/b[2]/c" style absolute path into a
// pathutil.Path of default-namespace named steps. Not part of the
// core: a CLI convenience, not the spec's wire format.
func parsePath(s string) (pathutil.Path, error) {
	if !strings.HasPrefix(s, "/") {
		return pathutil.Path{}, fmt.Errorf("path must be absolute: %q", s)
	}
	p := pathutil.RootPath()
	if s == "/" {
		return p, nil
	}
	for _, seg := range strings.Split(strings.TrimPrefix(s, "/"), "/") {
		if seg == "" {
			continue
		}
		name := seg
		index := 1
		if i := strings.IndexByte(seg, '['); i >= 0 && strings.HasSuffix(seg, "]") {
			name = seg[:i]
			n, err := strconv.Atoi(seg[i+1 : len(seg)-1])
			if err != nil {
				return pathutil.Path{}, fmt.Errorf("invalid SNS index in %q: %w", seg, err)
			}
			index = n
		}
		p = p.Append(pathutil.Named(itemstate.Name{Local: name}, index))
	}
	return p, nil
}

func printBundle(id itemstate.NodeId, b *bundle.NodeBundle) {
	fmt.Printf("id:            %s\n", id)
	fmt.Printf("primaryType:   %s\n", b.PrimaryType)
	if b.ParentID != nil {
		fmt.Printf("parentId:      %s\n", *b.ParentID)
	} else {
		fmt.Printf("parentId:      <none>\n")
	}
	fmt.Printf("mixins:        %v\n", b.Mixins)
	fmt.Printf("referenceable: %v\n", b.Referenceable)
	fmt.Printf("modCount:      %d\n", b.ModCount)
	fmt.Printf("size:          %d bytes\n", b.Size)
	fmt.Printf("properties (%d):\n", len(b.Properties))
	for _, ps := range b.Properties {
		fmt.Printf("  %-20s type=%d multi=%v values=%d\n", ps.ID.Name, ps.Type, ps.MultiValued, len(ps.Values))
	}
	fmt.Printf("children (%d):\n", len(b.ChildEntries))
	for _, ce := range b.ChildEntries {
		fmt.Printf("  %-20s -> %s\n", ce.Name, ce.ID)
	}
	if len(b.SharedSet) > 0 {
		fmt.Printf("sharedSet:     %v\n", b.SharedSet)
	}
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <db-path> <node-id>",
		Short: "Decode and print a node bundle's fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := parseNodeID(args[1])
			if err != nil {
				return err
			}
			b, err := s.LoadBundle(id)
			if err != nil {
				return err
			}
			printBundle(id, b)
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <db-path> <node-id>",
		Short: "Re-encode and re-store a bundle, then check it decodes with the same property and child counts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := parseNodeID(args[1])
			if err != nil {
				return err
			}
			b, err := s.LoadBundle(id)
			if err != nil {
				return err
			}
			if _, err := s.CreateNode(id, b); err != nil {
				return fmt.Errorf("re-encode failed: %w", err)
			}
			roundTripped, err := s.LoadBundle(id)
			if err != nil {
				return fmt.Errorf("re-decode failed: %w", err)
			}
			if len(roundTripped.Properties) != len(b.Properties) || len(roundTripped.ChildEntries) != len(b.ChildEntries) {
				return fmt.Errorf("round-trip mismatch for %s", id)
			}
			fmt.Printf("OK: %s round-trips (%d bytes)\n", id, roundTripped.Size)
			return nil
		},
	}
}

func newWalkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "walk <db-path> <root-id> <path>",
		Short: "Resolve an absolute path through the hierarchy manager",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			rootID, err := parseNodeID(args[1])
			if err != nil {
				return err
			}
			p, err := parsePath(args[2])
			if err != nil {
				return err
			}

			mgr, err := hierarchy.NewManager(s, rootID)
			if err != nil {
				return err
			}
			itemID, ok := mgr.ResolvePath(p)
			if !ok {
				fmt.Printf("%s: no such item\n", p)
				return nil
			}
			if itemID.IsNode() {
				fmt.Printf("%s -> node %s\n", p, itemID.Node)
			} else {
				fmt.Printf("%s -> property %s\n", p, itemID.Property)
			}
			return nil
		},
	}
}
