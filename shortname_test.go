package fat

import "testing"

func sfnString(b [11]byte) string { return string(b[:]) }

func TestShortNameGeneratorConcreteVectors(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Foo", "FOO        "},
		{"Foo.baR", "FOO     BAR"},
		{"Foo+1.baR", "FOO_1~1 BAR"},
		{"ver +1.2.text", "VER_12~1TEX"},
		{".bashrc.swp", "BASHRC~1SWP"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := NewShortNameGenerator(c.name)
			got, err := g.Generate()
			if err != nil {
				t.Fatalf("Generate() error: %v", err)
			}
			if sfnString(got) != c.want {
				t.Errorf("ShortNameGenerator(%q).Generate() = %q, want %q", c.name, sfnString(got), c.want)
			}
		})
	}
}

func TestShortNameGeneratorNumericSuffixCollision(t *testing.T) {
	// Four siblings already occupy TEXTFI~1TXT..TEXTFI~4TXT, so the
	// numeric-suffix space for this 6-char prefix is exhausted and
	// generation must fall through to the checksum-suffix form.
	g := NewShortNameGenerator("TextFile.Mine.txt")
	for d := 1; d <= 4; d++ {
		var sfn [11]byte
		copy(sfn[:], "TEXTFI~"+string(rune('0'+d))+"TXT")
		g.AddExisting(sfn)
	}
	got, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	want := "TE527D~1TXT"
	if sfnString(got) != want {
		t.Errorf("Generate() = %q, want %q", sfnString(got), want)
	}
}

func TestShortNameGeneratorChecksumSuffixCollision(t *testing.T) {
	// "x.txt" converts without loss, so only an exact sibling forces
	// suffixing; that sibling plus X~1..X~4 push it to the checksum form.
	g := NewShortNameGenerator("x.txt")
	var plain [11]byte
	copy(plain[:], "X       TXT")
	g.AddExisting(plain)
	for d := 1; d <= 4; d++ {
		var sfn [11]byte
		copy(sfn[:], "X~"+string(rune('0'+d))+"     TXT")
		g.AddExisting(sfn)
	}
	got, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	want := "X40DA~1 TXT"
	if sfnString(got) != want {
		t.Errorf("Generate() = %q, want %q", sfnString(got), want)
	}
}

func TestShortNameGeneratorDotSpecial(t *testing.T) {
	for _, name := range []string{".", ".."} {
		g := NewShortNameGenerator(name)
		got, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate(%q) error: %v", name, err)
		}
		want := name
		for len(want) < 11 {
			want += " "
		}
		if sfnString(got) != want {
			t.Errorf("Generate(%q) = %q, want %q", name, sfnString(got), want)
		}
	}
}

func TestShortNameGeneratorExactMatchForcesSuffix(t *testing.T) {
	g := NewShortNameGenerator("Foo")
	var existing [11]byte
	copy(existing[:], "FOO        ")
	g.AddExisting(existing)
	got, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if sfnString(got) == "FOO        " {
		t.Fatal("Generate() returned a name colliding with an existing sibling")
	}
}

func TestShortNameGeneratorExhaustion(t *testing.T) {
	g := NewShortNameGenerator("x.txt")
	var plain [11]byte
	copy(plain[:], "X       TXT")
	g.AddExisting(plain)
	for d := 1; d <= 4; d++ {
		var sfn [11]byte
		copy(sfn[:], "X~"+string(rune('0'+d))+"     TXT")
		g.AddExisting(sfn)
	}
	for d := 1; d <= 9; d++ {
		var sfn [11]byte
		// Any value matching the P HHHH ~d pattern occupies that slot;
		// the matcher only checks hex-digit shape, not the numeric value
		// (see DESIGN.md).
		copy(sfn[:], "X0000~"+string(rune('0'+d))+" TXT")
		g.AddExisting(sfn)
	}
	if _, err := g.Generate(); err != ErrAlreadyExists {
		t.Fatalf("Generate() error = %v, want ErrAlreadyExists", err)
	}
}

func TestSplitPath(t *testing.T) {
	head, rest, hasRest := splitPath("aaa/bbb/ccc")
	if head != "aaa" || rest != "bbb/ccc" || !hasRest {
		t.Fatalf("splitPath = (%q, %q, %v), want (\"aaa\", \"bbb/ccc\", true)", head, rest, hasRest)
	}

	head, rest, hasRest = splitPath("leaf")
	if head != "leaf" || rest != "" || hasRest {
		t.Fatalf("splitPath(leaf) = (%q, %q, %v)", head, rest, hasRest)
	}

	head, rest, hasRest = splitPath("/a/b/")
	if head != "a" || rest != "b" || !hasRest {
		t.Fatalf("splitPath(/a/b/) = (%q, %q, %v)", head, rest, hasRest)
	}
}
