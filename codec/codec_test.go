package codec

import (
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestJSON_DefaultMatchesMarshal(t *testing.T) {
	c := &JSONCodec{}
	got, err := c.Encode(map[string]string{"Name": "Musa"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(got) != `{"Name":"Musa"}` {
		t.Fatalf("unexpected encoding: %s", got)
	}
}

func TestJSON_NoTrailingNewline(t *testing.T) {
	c := &JSONCodec{}
	got, err := c.Encode(42)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.HasSuffix(string(got), "\n") {
		t.Fatal("canonical form must not end with a newline")
	}
}

func TestJSON_Deterministic(t *testing.T) {
	c := &JSONCodec{}
	payload := struct {
		Name    string `json:"name"`
		Surname string `json:"surname"`
	}{"Musa", "Demir"}

	a, err := c.Encode(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := c.Encode(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("same payload must encode identically: %s vs %s", a, b)
	}
}

func TestJSON_Indent(t *testing.T) {
	c := NewJSONCodec(JSONSettings{Indent: "  "})
	got, err := c.Encode(map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(got), "\n  ") {
		t.Fatalf("expected indented output, got %s", got)
	}
}

func TestJSON_EscapeHTML(t *testing.T) {
	plain := &JSONCodec{}
	got, err := plain.Encode("<b>")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(got) != `"<b>"` {
		t.Fatalf("expected unescaped output, got %s", got)
	}

	escaping := NewJSONCodec(JSONSettings{EscapeHTML: true})
	got, err = escaping.Encode("<b>")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(got) != `"<b>"` {
		t.Fatalf("expected escaped output, got %s", got)
	}
}

func TestMsgpack_RoundTrip(t *testing.T) {
	c := &MsgpackCodec{}
	got, err := c.Encode(map[string]string{"Name": "Musa"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var back map[string]string
	if err := msgpack.Unmarshal(got, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["Name"] != "Musa" {
		t.Fatalf("round trip mismatch: %v", back)
	}
}

func TestGet_Selection(t *testing.T) {
	if Get("").Name() != NameJSON {
		t.Fatal("empty name should default to json")
	}
	if Get(NameMsgpack).Name() != NameMsgpack {
		t.Fatal("msgpack should select the msgpack codec")
	}
	if Get("unknown").Name() != NameJSON {
		t.Fatal("unknown name should fall back to json")
	}
}
