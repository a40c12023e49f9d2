// Command vfatls mounts a FAT image and lists a directory tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	vfat "github.com/oakbranch/vfat"
)

var (
	recursive bool
	longList  bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vfatls IMAGE [PATH]",
		Short: "list a directory inside a FAT12/16/32 image",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runList,
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "descend into subdirectories")
	cmd.Flags().BoolVarP(&longList, "long", "l", false, "show size and attributes")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	path := "/"
	if len(args) == 2 {
		path = args[1]
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	defer f.Close()

	bd, err := newFileBlockDevice(f, 512)
	if err != nil {
		return err
	}

	cfg := vfat.MountConfig{Mode: vfat.ModeReadOnly}
	fsys, err := vfat.Mount(bd, cfg)
	if err != nil {
		fsys, err = vfat.MountPartition(bd, cfg)
		if err != nil {
			return fmt.Errorf("mount %s: %w", imagePath, err)
		}
	}

	dir, err := fsys.Root().OpenDir(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return listDir(cmd, dir, path, recursive, longList)
}

func listDir(cmd *cobra.Command, dir *vfat.Dir, path string, recurse, long bool) error {
	out := cmd.OutOrStdout()
	var entries []*vfat.LogicalEntry
	err := vfat.ForEachEntry(dir, func(e *vfat.LogicalEntry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return err
	}
	for _, e := range entries {
		if long {
			kind := "file"
			if e.Attr.IsDirectory() {
				kind = "dir"
			}
			fmt.Fprintf(out, "%-6s %10d %s\n", kind, e.Size, e.Name())
		} else {
			fmt.Fprintln(out, e.Name())
		}
	}
	if recurse {
		for _, e := range entries {
			name := e.Name()
			if !e.Attr.IsDirectory() || name == "." || name == ".." {
				continue
			}
			sub, err := dir.OpenDir(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s/%s:\n", path, name)
			if err := listDir(cmd, sub, path+"/"+name, recurse, long); err != nil {
				return err
			}
		}
	}
	return nil
}
