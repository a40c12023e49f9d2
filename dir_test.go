package fat

import (
	"errors"
	"fmt"
	"testing"
)

func TestDirCreateFileAndIterLongName(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	const name = "a reasonably long file name.txt"
	e, err := root.CreateFile(name)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if !e.HasLongName() {
		t.Fatal("CreateFile did not write an LFN run for a name that does not fit 8.3 without loss")
	}

	found, err := root.findEntry(name, KindFile, nil)
	if err != nil {
		t.Fatalf("findEntry: %v", err)
	}
	if found.Name() != name {
		t.Fatalf("Name() = %q, want %q", found.Name(), name)
	}
}

func TestDirCreateFileWithShortNameOverride(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	e, err := root.CreateFileWithShortName("résumé.txt", "RESUME", "TXT")
	if err != nil {
		t.Fatalf("CreateFileWithShortName: %v", err)
	}
	if sfnString(e.ShortName) != "RESUME  TXT" {
		t.Fatalf("ShortName = %q, want %q", sfnString(e.ShortName), "RESUME  TXT")
	}
	if !e.HasLongName() {
		t.Fatal("CreateFileWithShortName must keep an LFN run for the original long name")
	}
	if e.Name() != "résumé.txt" {
		t.Fatalf("Name() = %q, want %q", e.Name(), "résumé.txt")
	}

	if _, err := root.CreateFileWithShortName("other.txt", "RESUME", "TXT"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("colliding literal short name: err = %v, want ErrAlreadyExists", err)
	}
}

func TestDirCreateFileOmitsLFNWhenNameFits(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	e, err := root.CreateFile("FOO.TXT")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if e.HasLongName() {
		t.Fatal("CreateFile wrote an LFN run for a name needing no lossy conversion")
	}
	if sfnString(e.ShortName) != "FOO     TXT" {
		t.Fatalf("ShortName = %q, want %q", sfnString(e.ShortName), "FOO     TXT")
	}
}

func TestDirCreateFileIdempotent(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	first, err := root.CreateFile("same.txt")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	second, err := root.CreateFile("same.txt")
	if err != nil {
		t.Fatalf("CreateFile (again): %v", err)
	}
	if first.OffsetStart != second.OffsetStart {
		t.Fatal("CreateFile on an existing name wrote a second entry instead of returning the first")
	}
}

func TestDirCreateDirAndDotEntries(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	sub, err := root.CreateDir("subdir")
	if err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	if !sub.Attr.IsDirectory() {
		t.Fatal("CreateDir entry is missing AttrDirectory")
	}

	child, err := root.OpenDir("subdir")
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	dot, err := child.findEntry(".", KindDir, nil)
	if err != nil {
		t.Fatalf("find '.': %v", err)
	}
	if dot.FirstCluster != sub.FirstCluster {
		t.Fatalf("'.' first cluster = %d, want %d", dot.FirstCluster, sub.FirstCluster)
	}
	dotdot, err := child.findEntry("..", KindDir, nil)
	if err != nil {
		t.Fatalf("find '..': %v", err)
	}
	if dotdot.FirstCluster != 0 {
		t.Fatalf("'..' of a root child must point at cluster 0, got %d", dotdot.FirstCluster)
	}
}

func TestDirCreateNestedPath(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	if _, err := root.CreateDir("a"); err != nil {
		t.Fatalf("CreateDir(a): %v", err)
	}
	if _, err := root.CreateDir("a/b"); err != nil {
		t.Fatalf("CreateDir(a/b): %v", err)
	}
	if _, err := root.CreateFile("a/b/c.txt"); err != nil {
		t.Fatalf("CreateFile(a/b/c.txt): %v", err)
	}
	if _, _, err := root.OpenFile("a/b/c.txt"); err != nil {
		t.Fatalf("OpenFile(a/b/c.txt): %v", err)
	}
	if _, _, err := root.OpenFile("a/c.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("OpenFile(a/c.txt) err = %v, want ErrNotFound", err)
	}
}

func TestDirOpenFileThroughNonDirectoryFails(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()
	if _, err := root.CreateFile("leaf.txt"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, _, err := root.OpenFile("leaf.txt/more"); !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("OpenFile through a file component err = %v, want ErrNotDirectory", err)
	}
}

func TestDirFindEntryKindMismatch(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()
	if _, err := root.CreateFile("plain.txt"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := root.findEntry("plain.txt", KindDir, nil); !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("findEntry kind mismatch err = %v, want ErrNotDirectory", err)
	}

	if _, err := root.CreateDir("adir"); err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	if _, err := root.findEntry("adir", KindFile, nil); !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("findEntry kind mismatch err = %v, want ErrIsDirectory", err)
	}
}

func TestDirRemoveFileThenSlotsReused(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	e1, err := root.CreateFile("first.txt")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := root.Remove("first.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := root.findEntry("first.txt", KindAny, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("findEntry after remove err = %v, want ErrNotFound", err)
	}

	e2, err := root.CreateFile("second.txt")
	if err != nil {
		t.Fatalf("CreateFile (second): %v", err)
	}
	if e2.OffsetStart != e1.OffsetStart {
		t.Fatalf("second write_entry did not reuse the freed slot: got offset %d, want %d", e2.OffsetStart, e1.OffsetStart)
	}
}

func TestDirRemoveNonEmptyDirFails(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()
	if _, err := root.CreateDir("d"); err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	if _, err := root.CreateFile("d/x.txt"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := root.Remove("d"); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("Remove err = %v, want ErrNotEmpty", err)
	}
	if err := root.Remove("d/x.txt"); err != nil {
		t.Fatalf("Remove(d/x.txt): %v", err)
	}
	if err := root.Remove("d"); err != nil {
		t.Fatalf("Remove(d) after emptying: %v", err)
	}
}

func TestDirRenamePreservesPayload(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	gen := NewShortNameGenerator("orig.txt")
	f, err := root.writeEntry("orig.txt", gen, sfnPayload{attr: AttrArchive, firstCluster: 7, size: 1234})
	if err != nil {
		t.Fatalf("writeEntry: %v", err)
	}

	renamed, err := root.Rename("orig.txt", root, "renamed.txt")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.Size != f.Size || renamed.FirstCluster != f.FirstCluster {
		t.Fatalf("Rename changed size/firstCluster: got (%d,%d), want (%d,%d)",
			renamed.Size, renamed.FirstCluster, f.Size, f.FirstCluster)
	}
	if _, err := root.findEntry("orig.txt", KindAny, nil); !errors.Is(err, ErrNotFound) {
		t.Fatal("source name still resolves after rename")
	}
	if _, err := root.findEntry("renamed.txt", KindAny, nil); err != nil {
		t.Fatalf("destination name does not resolve after rename: %v", err)
	}
}

func TestDirRenameToExistingNameFails(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()
	if _, err := root.CreateFile("a.txt"); err != nil {
		t.Fatalf("CreateFile(a): %v", err)
	}
	if _, err := root.CreateFile("b.txt"); err != nil {
		t.Fatalf("CreateFile(b): %v", err)
	}
	if _, err := root.Rename("a.txt", root, "b.txt"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("Rename onto an existing name err = %v, want ErrAlreadyExists", err)
	}
}

func TestDirGrowsAcrossClusters(t *testing.T) {
	fsys := mustMount(t, newFAT12Fixture(t))
	root := fsys.Root()

	sub, err := root.CreateDir("many")
	if err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	dir := root.openChildDirByCluster(sub.FirstCluster)

	// One cluster is 512 bytes = 16 slots, already 2 used by "." and
	// "..". Creating enough files to spill past the first cluster
	// exercises the free-slot finder's stream-growth path for real.
	const n = 30
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("f%d.txt", i)
		if _, err := dir.CreateFile(name); err != nil {
			t.Fatalf("CreateFile(%s): %v", name, err)
		}
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("f%d.txt", i)
		if _, err := dir.findEntry(name, KindFile, nil); err != nil {
			t.Fatalf("findEntry(%s) after growth: %v", name, err)
		}
	}
}
