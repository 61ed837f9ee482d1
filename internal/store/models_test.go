package store

import (
	"reflect"
	"testing"
)

func TestAssignmentsRenderOnlyProvidedColumns(t *testing.T) {
	title := "New title"
	var set assignments
	set.setString("title", &title)
	set.setString("description", nil)
	set.set("is_featured", true)

	query, args := set.update("projects", 42, "id")
	want := "UPDATE projects SET title=$1, is_featured=$2, updated_at=NOW() WHERE id=$3 RETURNING id"
	if query != want {
		t.Fatalf("query = %q, want %q", query, want)
	}
	if !reflect.DeepEqual(args, []any{"New title", true, int64(42)}) {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestAssignmentsEmpty(t *testing.T) {
	var set assignments
	set.setString("title", nil)
	if !set.empty() {
		t.Fatal("expected no assignments")
	}
}

func TestListCodec(t *testing.T) {
	if got := encodeList(nil); got != "[]" {
		t.Fatalf("encodeList(nil) = %q", got)
	}
	list, err := decodeList([]byte(`["React","Go"]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(list, []string{"React", "Go"}) {
		t.Fatalf("decoded %v", list)
	}
	list, err = decodeList([]byte(`null`))
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("null should decode to empty list, got %v (%v)", list, err)
	}
}
