package core

import "testing"

func TestRelationTypeString(t *testing.T) {
	tests := []struct {
		typ  RelationType
		want string
	}{
		{RelationDirect, "direct"},
		{RelationIndirect, "indirect"},
		{RelationBind, "bind"},
		{RelationType(7), "unknown(7)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int(tt.typ), got, tt.want)
		}
	}
}

func TestParseRelationType(t *testing.T) {
	tests := []struct {
		in   string
		want RelationType
	}{
		{"direct", RelationDirect},
		{"0", RelationDirect},
		{"indirect", RelationIndirect},
		{"1", RelationIndirect},
		{"bind", RelationBind},
		{"2", RelationBind},
	}
	for _, tt := range tests {
		got, err := ParseRelationType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseRelationType(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	for _, in := range []string{"", "3", "DIRECT", "sideways"} {
		if _, err := ParseRelationType(in); err == nil {
			t.Errorf("ParseRelationType(%q) accepted", in)
		}
	}
}

func TestRelationTypeValid(t *testing.T) {
	for _, typ := range []RelationType{RelationDirect, RelationIndirect, RelationBind} {
		if !typ.Valid() {
			t.Errorf("%v not valid", typ)
		}
	}
	if RelationType(-1).Valid() || RelationType(3).Valid() {
		t.Error("out-of-range type reported valid")
	}
}

func TestNodeKind(t *testing.T) {
	seg := Node{ID: "a"}
	if seg.Kind() != "segment" {
		t.Errorf("Kind() = %q, want segment", seg.Kind())
	}
	con := Node{ID: "b", IsContent: true}
	if con.Kind() != "content" {
		t.Errorf("Kind() = %q, want content", con.Kind())
	}
}
