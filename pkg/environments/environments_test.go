package environments

import (
	"os"
	"path/filepath"
	"testing"
)

const manifestYAML = `
name: treasury
description: Treasury transfer environments
environments:
  default:
    confirmations: 1
    memo: scheduled transfer
  testnet:
    chain_id: 11155111
    rpc_url: https://sepolia.example.org
    dry_run: true
  mainnet:
    chain_id: 1
    rpc_url: https://mainnet.example.org
    confirmations: 12
    limits:
      max_amount: 5000
      tokens:
        - USDC
        - DAI
`

func parseManifest(t *testing.T) *Manifest {
	t.Helper()
	manifest, err := NewLoader().Parse([]byte(manifestYAML))
	if err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return manifest
}

func TestLoaderParse(t *testing.T) {
	manifest := parseManifest(t)

	if manifest.Name != "treasury" {
		t.Errorf("Expected name treasury, got %s", manifest.Name)
	}
	if len(manifest.Environments) != 3 {
		t.Errorf("Expected 3 environments, got %d", len(manifest.Environments))
	}
}

func TestLoaderParse_MissingName(t *testing.T) {
	_, err := NewLoader().Parse([]byte("environments:\n  testnet:\n    chain_id: 1\n"))
	if err == nil {
		t.Fatal("Expected validation error for missing name")
	}
}

func TestLoaderParse_NoEnvironments(t *testing.T) {
	_, err := NewLoader().Parse([]byte("name: empty\n"))
	if err == nil {
		t.Fatal("Expected validation error for missing environments")
	}
}

func TestLoaderParse_InvalidYAML(t *testing.T) {
	_, err := NewLoader().Parse([]byte("name: [unterminated"))
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "environments.yml")
	if err := os.WriteFile(path, []byte(manifestYAML), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	manifest, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}
	if manifest.Name != "treasury" {
		t.Errorf("Expected name treasury, got %s", manifest.Name)
	}
}

func TestLoaderLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestManifestNames(t *testing.T) {
	manifest := parseManifest(t)

	names := manifest.Names()
	if len(names) != 2 {
		t.Fatalf("Expected 2 names, got %d", len(names))
	}
	if names[0] != "mainnet" || names[1] != "testnet" {
		t.Errorf("Expected sorted names [mainnet testnet], got %v", names)
	}
}

func TestManifestSelect_MergesDefaults(t *testing.T) {
	manifest := parseManifest(t)

	values, err := manifest.Select("testnet")
	if err != nil {
		t.Fatalf("failed to select environment: %v", err)
	}

	// Default keys appear when the environment does not override them
	if memo, ok := values.GetString("memo"); !ok || memo != "scheduled transfer" {
		t.Errorf("Expected default memo, got %q", memo)
	}
	if confirmations, _ := values.GetInt("confirmations"); confirmations != 1 {
		t.Errorf("Expected default confirmations 1, got %d", confirmations)
	}
	if chainId, _ := values.GetInt("chain_id"); chainId != 11155111 {
		t.Errorf("Expected chain_id 11155111, got %d", chainId)
	}
	if dryRun, _ := values.GetBool("dry_run"); !dryRun {
		t.Error("Expected dry_run true")
	}
}

func TestManifestSelect_OverridesDefaults(t *testing.T) {
	manifest := parseManifest(t)

	values, err := manifest.Select("mainnet")
	if err != nil {
		t.Fatalf("failed to select environment: %v", err)
	}

	if confirmations, _ := values.GetInt("confirmations"); confirmations != 12 {
		t.Errorf("Expected mainnet confirmations 12, got %d", confirmations)
	}
}

func TestManifestSelect_NestedValues(t *testing.T) {
	manifest := parseManifest(t)

	values, err := manifest.Select("mainnet")
	if err != nil {
		t.Fatalf("failed to select environment: %v", err)
	}

	limits, ok := values.Get("limits")
	if !ok || !limits.IsObject() {
		t.Fatal("Expected limits object")
	}
	maxAmount, ok := limits.GetKey("max_amount")
	if !ok {
		t.Fatal("Expected max_amount key")
	}
	if i, _ := maxAmount.AsInt(); i != 5000 {
		t.Errorf("Expected max_amount 5000, got %v", maxAmount)
	}

	tokens, ok := limits.GetKey("tokens")
	if !ok {
		t.Fatal("Expected tokens key")
	}
	arr, ok := tokens.AsArray()
	if !ok || len(arr) != 2 {
		t.Fatalf("Expected 2 tokens, got %v", tokens)
	}
	if s, _ := arr[0].AsString(); s != "USDC" {
		t.Errorf("Expected first token USDC, got %v", arr[0])
	}
}

func TestManifestSelect_UnknownEnvironment(t *testing.T) {
	manifest := parseManifest(t)

	if _, err := manifest.Select("devnet"); err == nil {
		t.Fatal("Expected error for unknown environment")
	}
}

func TestManifestSelect_StableOrder(t *testing.T) {
	manifest := parseManifest(t)

	first, err := manifest.Select("mainnet")
	if err != nil {
		t.Fatalf("failed to select environment: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := manifest.Select("mainnet")
		if err != nil {
			t.Fatalf("failed to select environment: %v", err)
		}
		if first.Fingerprint() != again.Fingerprint() {
			t.Fatal("Expected stable fingerprint across selections")
		}
	}
}

func TestValueFromYAML_Unsupported(t *testing.T) {
	if _, err := valueFromYAML(struct{}{}); err == nil {
		t.Fatal("Expected error for unsupported type")
	}
}
