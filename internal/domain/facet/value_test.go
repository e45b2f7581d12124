package facet

import (
	"encoding/json"
	"testing"
)

func TestScalar_Key(t *testing.T) {
	tests := []struct {
		name string
		in   Scalar
		want string
	}{
		{"string", String("Drama"), "Drama"},
		{"integer", Int(2022), "2022"},
		{"float", Number(1.5), "1.5"},
		{"whole float", Number(1949.0), "1949"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScalar_IsZero(t *testing.T) {
	if !String("").IsZero() {
		t.Error("empty string should be falsy")
	}
	if !Int(0).IsZero() {
		t.Error("zero should be falsy")
	}
	if String("0").IsZero() {
		t.Error("string \"0\" is not falsy")
	}
	if Int(1934).IsZero() {
		t.Error("non-zero number is not falsy")
	}
}

func TestMulti_Deduplicates(t *testing.T) {
	f := Multi(String("a"), String("b"), String("a"), Int(1), Int(1))
	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}
	want := []string{"a", "b", "1"}
	for i, v := range f.Values() {
		if v.Key() != want[i] {
			t.Errorf("Values()[%d] = %q, want %q", i, v.Key(), want[i])
		}
	}
}

func TestField_Keys_SkipsFalsy(t *testing.T) {
	f := Multi(String(""), String("x"), Int(0), Int(7))
	keys := f.Keys()
	if len(keys) != 2 || keys[0] != "x" || keys[1] != "7" {
		t.Errorf("Keys() = %v, want [x 7]", keys)
	}
}

func TestField_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   Field
		want string
	}{
		{"single string", Single(String("Judi Dench")), `"Judi Dench"`},
		{"single empty", Single(String("")), `""`},
		{"set", Multi(String("a"), Int(2)), `["a",2]`},
		{"empty", Empty(), `[]`},
		{"zero value", Field{}, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("marshal = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestField_UnmarshalJSON(t *testing.T) {
	var doc Document
	data := `{"id":"GB2022_076","releaseYear":2022,"genre":["Comedy",null,"Drama"],"tags":null}`
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.ID() != "GB2022_076" {
		t.Errorf("ID() = %q", doc.ID())
	}
	year := doc.Get("releaseYear")
	if !year.IsSingle() {
		t.Error("releaseYear should decode as a scalar")
	}
	if v, _ := year.First(); !v.IsNumber() || v.Num() != 2022 {
		t.Errorf("releaseYear = %v", v)
	}
	if doc.Get("genre").Len() != 2 {
		t.Errorf("genre len = %d, want 2", doc.Get("genre").Len())
	}
	if doc.Get("tags").Len() != 0 {
		t.Error("null should decode as an empty set")
	}
	if doc.Get("missing").Len() != 0 {
		t.Error("absent facet should read as an empty set")
	}
}

func TestScalar_UnmarshalJSON_RejectsBool(t *testing.T) {
	var s Scalar
	if err := json.Unmarshal([]byte("true"), &s); err == nil {
		t.Fatal("expected error for boolean")
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value string
		want  bool
	}{
		{"exact string", Strings("Drama"), "Drama", true},
		{"string mismatch", Strings("Drama"), "drama", false},
		{"integer parse", Single(Int(2022)), "2022", true},
		{"float parse", Single(Number(1.5)), "1.50", true},
		{"float form of integer", Single(Int(2022)), "2022.0", true},
		{"number against text", Single(Int(2022)), "year", false},
		{"set containment", Multi(String("a"), Int(3)), "3", true},
		{"string number is not numeric", Strings("2022"), "2022.0", false},
		{"empty set", Empty(), "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.field.Matches(tt.value); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestCanonicalKey(t *testing.T) {
	tests := map[string]string{
		"2022":   "2022",
		"2022.0": "2022",
		"1.50":   "1.5",
		"Drama":  "Drama",
		"":       "",
	}
	for in, want := range tests {
		if got := CanonicalKey(in); got != want {
			t.Errorf("CanonicalKey(%q) = %q, want %q", in, got, want)
		}
	}
}
