package core

// Package sets per environment and the event-kind matcher. Protocol
// upgrades publish a new package address while old checkpoints keep emitting
// under the old one, so every historical address stays recognized.

import (
	"fmt"
	"strings"
)

// Environment selects the chain the indexer follows.
type Environment int

const (
	Mainnet Environment = iota
	Testnet
)

// ParseEnvironment parses "mainnet" or "testnet".
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(s) {
	case "mainnet":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	}
	return 0, Errorf(Configuration, "unknown environment %q", s)
}

func (e Environment) String() string {
	if e == Testnet {
		return "testnet"
	}
	return "mainnet"
}

// RemoteStoreURL returns the default sequential checkpoint bucket.
func (e Environment) RemoteStoreURL() string {
	if e == Testnet {
		return "https://checkpoints.testnet.sui.io"
	}
	return "https://checkpoints.mainnet.sui.io"
}

var mainnetPackages = mustAddresses(
	"0xb29d83c26cdd2a64959263abbcfc4a6937f0c9fccaf98580ca56faded65be244",
	"0x2c8d603bc51326b8c13cef9dd07031a408a48dddb541963357661df5d3204809",
	"0xcaf6ba059d539a97646d47f0b9ddf843e138d215e2a12ca1f4585d386f7aec3a",
)

var testnetPackages = mustAddresses(
	"0x467e34e75debeea8b89d03aea15755373afc39a7c96c9959549c7f5f689843cf",
	"0x5d520a3e3059b68530b2ef4080126dbb5d234e0afd66561d0d9bd48127a06044",
	"0xcd40faffa91c00ce019bfe4a4b46f8d623e20bf331eb28990ee0305e9b9f3e3c",
	"0x16c4e050b9b19b25ce1365b96861bc50eb7e58383348a39ea8a8e1d063cfef73",
	"0xc483dba510597205749f2e8410c23f19be31a710aef251f353bc1b97755efd4d",
	"0x5da5bbf6fb097d108eaf2c2306f88beae4014c90a44b95c7e76a6bfccec5f5ee",
	"0xa3886aaa8aa831572dd39549242ca004a438c3a55967af9f0387ad2b01595068",
	"0x9592ac923593f37f4fed15ee15f760ebd4c39729f53ee3e8c214de7a17157769",
	"0x984757fc7c0e6dd5f15c2c66e881dd6e5aca98b725f3dbd83c445e057ebb790a",
	"0xfb28c4cbc6865bd1c897d26aecbe1f8792d1509a20ffec692c800660cbec6982",
)

// The margin package is not deployed on mainnet yet; margin pipelines match
// nothing there until an address lands here.
var mainnetMarginPackages []Address

var testnetMarginPackages = mustAddresses(
	"0x3f44af8fcef3cd753a221a4f25a61d2d6c74b4ca0b6809f6e670764b9debf08a",
	"0x8fe69c287d99f8873d5080bf74aec39c4b79536cdbbe260bf43a1b46fd553be0",
	"0x442d21fd044b90274934614c3c41416c83582f42eaa8feb4fecea301aa6bdd54",
	"0xf74ec503c186327663e11b5b888bd8a654bb8afaba34342274d3172edf3abeef",
	"0xb388009b59b09cd5d219dae79dd3e5d08a5734884363e59a37f3cbe6ef613424",
)

// suiFrameworkAddress is the well-known 0x2 system package.
var suiFrameworkAddress = MustAddress("0x2")

// ClockObjectID is the shared clock object passed to time-dependent view
// functions.
var ClockObjectID = MustAddress("0x6")

var coreModules = map[string]struct{}{
	"balance_manager": {},
	"order":           {},
	"order_info":      {},
	"vault":           {},
	"deep_price":      {},
	"state":           {},
	"governance":      {},
	"pool":            {},
}

var marginModules = map[string]struct{}{
	"margin_manager":  {},
	"margin_pool":     {},
	"margin_registry": {},
	"protocol_fees":   {},
}

var suiModules = map[string]struct{}{
	"sui": {},
}

// IsCoreModule reports whether module belongs to the CLOB core.
func IsCoreModule(module string) bool { _, ok := coreModules[module]; return ok }

// IsMarginModule reports whether module belongs to margin lending.
func IsMarginModule(module string) bool { _, ok := marginModules[module]; return ok }

// IsSuiModule reports whether module is a system module.
func IsSuiModule(module string) bool { _, ok := suiModules[module]; return ok }

// CorePackages returns the active core package list, honoring the sandbox
// override when one was published.
func CorePackages(env Environment) []Address {
	if addrs, ok := overrideCorePackages(); ok {
		return addrs
	}
	if env == Testnet {
		return testnetPackages
	}
	return mainnetPackages
}

// MarginPackages returns the active margin package list (possibly empty),
// honoring the sandbox override when one was published.
func MarginPackages(env Environment) []Address {
	if addrs, ok := overrideMarginPackages(); ok {
		return addrs
	}
	if env == Testnet {
		return testnetMarginPackages
	}
	return mainnetMarginPackages
}

// AllPackages returns core plus margin addresses for the environment.
func AllPackages(env Environment) []Address {
	core := CorePackages(env)
	margin := MarginPackages(env)
	out := make([]Address, 0, len(core)+len(margin))
	out = append(out, core...)
	out = append(out, margin...)
	return out
}

// MarginPackage returns the first margin package address, or an error when
// margin lending is not deployed on the environment.
func MarginPackage(env Environment) (Address, error) {
	pkgs := MarginPackages(env)
	if len(pkgs) == 0 {
		return Address{}, Errorf(Configuration,
			"margin lending is not deployed on %s", env)
	}
	return pkgs[0], nil
}

// PackageAddressesForModule returns every address a struct tag in the given
// module may legitimately carry, across all live protocol versions. Unknown
// modules return an error and therefore never match.
func PackageAddressesForModule(module string, env Environment) ([]Address, error) {
	switch {
	case IsCoreModule(module):
		return CorePackages(env), nil
	case IsMarginModule(module):
		return MarginPackages(env), nil
	case IsSuiModule(module):
		return []Address{suiFrameworkAddress}, nil
	}
	return nil, fmt.Errorf("unknown module: %s", module)
}

// EventKind identifies an on-chain event type by module, name and type
// parameter arity; the address dimension is resolved per environment.
type EventKind struct {
	Module string
	Name   string
	Arity  int
}

// Matches reports whether tag identifies this event kind under any package
// address currently recognized for the environment.
func (k EventKind) Matches(tag *StructTag, env Environment) bool {
	if tag.Module != k.Module || tag.Name != k.Name || len(tag.TypeParams) != k.Arity {
		return false
	}
	addrs, err := PackageAddressesForModule(k.Module, env)
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if tag.Address == a {
			return true
		}
	}
	return false
}

func mustAddresses(hexes ...string) []Address {
	out := make([]Address, len(hexes))
	for i, h := range hexes {
		out[i] = MustAddress(h)
	}
	return out
}
