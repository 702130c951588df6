package interpreter

import (
	"reflect"
	"testing"
)

func TestParseExpressionPlain(t *testing.T) {
	got, err := ParseExpression([]string{"start"})
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	if !reflect.DeepEqual(got.Command, []string{"start"}) {
		t.Errorf("Command = %v", got.Command)
	}
	if got.HasNetworkSelector() || got.HasDomainSelector() || got.HasExport() || got.HasImport() {
		t.Error("expected no selectors set")
	}
}

func TestParseExpressionNetworkSelector(t *testing.T) {
	got, err := ParseExpression([]string{"start", "--nwk", "Home", "Office"})
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	if !reflect.DeepEqual(got.Command, []string{"start"}) {
		t.Errorf("Command = %v", got.Command)
	}
	if !reflect.DeepEqual(got.NetworkAliases, []string{"Home", "Office"}) {
		t.Errorf("NetworkAliases = %v", got.NetworkAliases)
	}
}

func TestParseExpressionNwkDomMutuallyExclusive(t *testing.T) {
	_, err := ParseExpression([]string{"start", "--nwk", "Home", "--dom", "ACME"})
	if err == nil {
		t.Fatal("expected error combining --nwk and --dom")
	}
}

func TestParseExpressionExportImportMutuallyExclusive(t *testing.T) {
	_, err := ParseExpression([]string{"bbrdataset", "get", "--export", "a.json", "--import", "b.json"})
	if err == nil {
		t.Fatal("expected error combining --export and --import")
	}
}

func TestParseExpressionExportSingleFilename(t *testing.T) {
	_, err := ParseExpression([]string{"bbrdataset", "get", "--export", "a.json", "b.json"})
	if err == nil {
		t.Fatal("expected error with two export filenames")
	}
}

func TestParseExpressionGroupAliasMustBeAlone(t *testing.T) {
	_, err := ParseExpression([]string{"start", "--nwk", "all", "Home"})
	if err == nil {
		t.Fatal("expected error mixing a group alias with another network selector")
	}
}

func TestParseExpressionFlagRequiresValue(t *testing.T) {
	_, err := ParseExpression([]string{"start", "--nwk"})
	if err == nil {
		t.Fatal("expected error for --nwk with no following value")
	}
}

func TestParseExpressionPassesThroughOtherFlags(t *testing.T) {
	got, err := ParseExpression([]string{"opdataset", "set", "channel", "--force", "15"})
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	want := []string{"opdataset", "set", "channel", "--force", "15"}
	if !reflect.DeepEqual(got.Command, want) {
		t.Errorf("Command = %v, want %v", got.Command, want)
	}
}
