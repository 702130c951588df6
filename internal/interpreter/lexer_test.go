package interpreter

import (
	"reflect"
	"testing"
)

func TestTokenizeSimple(t *testing.T) {
	got := Tokenize("start")
	want := []string{"start"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeWhitespace(t *testing.T) {
	got := Tokenize("  opdataset   get  active ")
	want := []string{"opdataset", "get", "active"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeQuotedSpan(t *testing.T) {
	got := Tokenize("config set pskc '00 11 22 33'")
	want := []string{"config", "set", "pskc", "00 11 22 33"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize("   "); len(got) != 0 {
		t.Errorf("Tokenize(whitespace) = %v, want empty", got)
	}
}
