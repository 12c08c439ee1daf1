package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"automation-hub/internal/guard"
	"automation-hub/internal/portal"
	"automation-hub/internal/relation"
)

// relationFlags are the --add-X/--remove-X/--X flags that edit one side of
// a many-to-many relation, plus --drop-missing.
type relationFlags struct {
	name        string
	set         []int64
	add         []int64
	remove      []int64
	dropMissing bool
}

func addRelationFlags(fs *pflag.FlagSet, rf *relationFlags, noun string) {
	fs.Int64SliceVar(&rf.set, rf.name, nil, "Replace the "+noun+" set with these ids")
	fs.Int64SliceVar(&rf.add, "add-"+rf.name, nil, "Add "+noun+" ids")
	fs.Int64SliceVar(&rf.remove, "remove-"+rf.name, nil, "Remove "+noun+" ids")
	fs.BoolVar(&rf.dropMissing, "drop-missing", false, "Drop "+noun+" ids that are not in the catalog")
}

// apply stages the flags onto set in order: replace, add, remove.
func (rf *relationFlags) apply(fs *pflag.FlagSet, set *relation.IDSet) {
	if fs.Changed(rf.name) {
		for _, id := range set.IDs() {
			set.Remove(id)
		}
		for _, id := range rf.set {
			set.Add(id)
		}
	}
	for _, id := range rf.add {
		set.Add(id)
	}
	for _, id := range rf.remove {
		set.Remove(id)
	}
}

// reconcile resolves set against catalog. Dangling ids are kept unless
// --drop-missing was given, and are reported on stderr either way.
func reconcile[T any](cmd *cobra.Command, rf *relationFlags, set *relation.IDSet, catalog []T, id func(T) int64) {
	if rf.dropMissing {
		if dropped := relation.DropMissing(set, catalog, id); len(dropped) > 0 {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Dropped missing %s ids: %v\n", rf.name, dropped)
		}
		return
	}
	if _, missing := relation.Resolve(set, catalog, id); len(missing) > 0 {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s ids %v are not in the catalog (kept; use --drop-missing to remove)\n", rf.name, missing)
	}
}

// adminApp builds the portal and requires an administrator session.
func (rt *runtime) adminApp(cmd *cobra.Command) (*portal.App, error) {
	return rt.require(cmd, guard.AdminOnly)
}

// printIDs writes one id per line for --quiet.
func printIDs[T any](w io.Writer, items []T, id func(T) int64) {
	for _, item := range items {
		_, _ = fmt.Fprintln(w, strconv.FormatInt(id(item), 10))
	}
}

func printDeleted(cmd *cobra.Command, kind string, id int64) error {
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(cmd.OutOrStdout(), map[string]any{"status": "deleted", "kind": kind, "id": id})
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %d\n", kind, id)
	return nil
}
