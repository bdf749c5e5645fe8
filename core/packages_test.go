package core

import (
	"testing"
)

func TestEventKindMatchesAllLiveVersions(t *testing.T) {
	kind := EventKind{Module: "order_info", Name: "OrderPlaced"}

	for _, pkg := range mainnetPackages {
		tag := StructTag{Address: pkg, Module: "order_info", Name: "OrderPlaced"}
		if !kind.Matches(&tag, Mainnet) {
			t.Fatalf("package %s should match", pkg)
		}
	}

	unknown := StructTag{
		Address: MustAddress("0x1234"),
		Module:  "order_info",
		Name:    "OrderPlaced",
	}
	if kind.Matches(&unknown, Mainnet) {
		t.Fatal("unknown package must not match")
	}
}

func TestEventKindRejectsWrongNameModuleArity(t *testing.T) {
	pkg := mainnetPackages[0]
	kind := EventKind{Module: "order_info", Name: "OrderFilled"}

	wrongName := StructTag{Address: pkg, Module: "order_info", Name: "OrderPlaced"}
	if kind.Matches(&wrongName, Mainnet) {
		t.Fatal("wrong name must not match")
	}
	wrongModule := StructTag{Address: pkg, Module: "order", Name: "OrderFilled"}
	if kind.Matches(&wrongModule, Mainnet) {
		t.Fatal("wrong module must not match")
	}
	wrongArity := StructTag{
		Address: pkg, Module: "order_info", Name: "OrderFilled",
		TypeParams: []TypeTag{{Kind: TagU64}},
	}
	if kind.Matches(&wrongArity, Mainnet) {
		t.Fatal("wrong arity must not match")
	}
}

func TestGenericKindRequiresArity(t *testing.T) {
	pkg := mainnetPackages[0]
	bare := StructTag{Address: pkg, Module: "pool", Name: "DeepBurned"}
	if KindDeepBurned.Matches(&bare, Mainnet) {
		t.Fatal("DeepBurned without type params must not match")
	}
	two := bare
	two.TypeParams = []TypeTag{{Kind: TagU64}, {Kind: TagU64}}
	if !KindDeepBurned.Matches(&two, Mainnet) {
		t.Fatal("DeepBurned with two type params must match")
	}
}

func TestUnknownModuleFailsMatching(t *testing.T) {
	kind := EventKind{Module: "mystery", Name: "Whatever"}
	tag := StructTag{Address: mainnetPackages[0], Module: "mystery", Name: "Whatever"}
	if kind.Matches(&tag, Mainnet) {
		t.Fatal("unknown module must fail matching")
	}
	if _, err := PackageAddressesForModule("mystery", Mainnet); err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestSuiModuleUsesWellKnownAddress(t *testing.T) {
	addrs, err := PackageAddressesForModule("sui", Mainnet)
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 1 || addrs[0] != MustAddress("0x2") {
		t.Fatalf("sui module should map to 0x2, got %v", addrs)
	}
}

func TestMarginNotDeployedOnMainnet(t *testing.T) {
	if got := MarginPackages(Mainnet); len(got) != 0 {
		t.Fatalf("mainnet margin packages should be empty, got %v", got)
	}
	if _, err := MarginPackage(Mainnet); err == nil {
		t.Fatal("expected error for mainnet margin package")
	}
	if _, err := MarginPackage(Testnet); err != nil {
		t.Fatalf("testnet margin package: %v", err)
	}
}

func TestSandboxOverride(t *testing.T) {
	defer resetPackageOverride()

	if err := InitPackageOverride([]string{"0xDEAD"}, nil); err != nil {
		t.Fatal(err)
	}

	want := MustAddress("0xDEAD")
	for _, env := range []Environment{Mainnet, Testnet} {
		core := CorePackages(env)
		if len(core) != 1 || core[0] != want {
			t.Fatalf("%s core packages = %v, want [%s]", env, core, want)
		}
		if margin := MarginPackages(env); len(margin) != 0 {
			t.Fatalf("%s margin packages = %v, want empty", env, margin)
		}
	}

	// Matching follows the override, not the compiled defaults.
	kind := EventKind{Module: "order_info", Name: "OrderPlaced"}
	overridden := StructTag{Address: want, Module: "order_info", Name: "OrderPlaced"}
	if !kind.Matches(&overridden, Mainnet) {
		t.Fatal("override address must match")
	}
	compiled := StructTag{Address: mainnetPackages[0], Module: "order_info", Name: "OrderPlaced"}
	if kind.Matches(&compiled, Mainnet) {
		t.Fatal("compiled default must not match while override is active")
	}

	if err := InitPackageOverride([]string{"0xBEEF"}, nil); err == nil {
		t.Fatal("second override must be rejected")
	}
}

func TestParseEnvironment(t *testing.T) {
	if env, err := ParseEnvironment("MAINNET"); err != nil || env != Mainnet {
		t.Fatalf("MAINNET: %v %v", env, err)
	}
	if env, err := ParseEnvironment("testnet"); err != nil || env != Testnet {
		t.Fatalf("testnet: %v %v", env, err)
	}
	if _, err := ParseEnvironment("devnet"); !IsKind(err, Configuration) {
		t.Fatalf("devnet should be a Configuration error, got %v", err)
	}
}

func TestParseAddressPadding(t *testing.T) {
	a, err := ParseAddress("0x2")
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != "0x0000000000000000000000000000000000000000000000000000000000000002" {
		t.Fatalf("padded render = %s", a)
	}
	if _, err := ParseAddress(""); err == nil {
		t.Fatal("empty address must fail")
	}
	if _, err := ParseAddress("0x" + string(make([]byte, 100))); err == nil {
		t.Fatal("oversized address must fail")
	}
}
