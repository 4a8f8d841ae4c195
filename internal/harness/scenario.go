package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cartsync/internal/testutil"
)

// Scenario defines a cart scenario: seeded items, a sequence of host
// operations, and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Identity signs in a named user before the steps run. Empty means the
	// scenario starts signed out and the first write creates an anonymous
	// identity.
	Identity string `yaml:"identity,omitempty"`

	// Setup seeds the store for Identity before the steps run.
	Setup []SetupItem `yaml:"setup,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final cart, toast and identity.
	Assertions []Assertion `yaml:"assertions"`
}

// SetupItem is a line item written straight to the store.
type SetupItem struct {
	ProductID string `yaml:"product_id"`
	Name      string `yaml:"name"`
	Price     string `yaml:"price"`
	Quantity  int    `yaml:"quantity"`
	ImageURL  string `yaml:"image_url,omitempty"`
}

// Step is one host operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Product fields. Item operations on a product already in the cart use
	// the cart's copy of the item and only ProductID is needed.
	ProductID string `yaml:"product_id,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Price     string `yaml:"price,omitempty"`
	Quantity  int    `yaml:"quantity,omitempty"`

	// Duration is how far "advance" moves the clock (e.g. "250ms").
	Duration string `yaml:"duration,omitempty"`

	// Credential is passed to "login".
	Credential string `yaml:"credential,omitempty"`

	// StoreOp selects the store operation "fail" and "heal" act on.
	StoreOp string `yaml:"store_op,omitempty"`

	// ExpectError is the cart.ErrorCode this step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	Type string `yaml:"type"`

	// ProductID is used by quantity and absent.
	ProductID string `yaml:"product_id,omitempty"`

	// Total is a decimal string (used by total).
	Total string `yaml:"total,omitempty"`

	// Count is the expected badge count (used by count).
	Count *int `yaml:"count,omitempty"`

	// Quantity is the expected line quantity (used by quantity).
	Quantity int `yaml:"quantity,omitempty"`

	// Message and Visible describe the toast (used by toast).
	Message string `yaml:"message,omitempty"`
	Visible *bool  `yaml:"visible,omitempty"`

	// Identity is the expected bound identity ID, "" for signed out
	// (used by identity). Anonymous optionally checks the flag.
	Identity  *string `yaml:"identity,omitempty"`
	Anonymous *bool   `yaml:"anonymous,omitempty"`

	// Active is the exact sorted list of Active animation keys
	// (used by animations).
	Active []string `yaml:"active,omitempty"`
}

// Step operations.
const (
	OpAdd       = "add"
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpRemove    = "remove"
	OpClear     = "clear"
	OpRefresh   = "refresh"
	OpAdvance   = "advance"
	OpLogin     = "login"
	OpLogout    = "logout"
	OpFail      = "fail"
	OpHeal      = "heal"
)

// Assertion type constants.
const (
	AssertTotal      = "total"
	AssertCount      = "count"
	AssertQuantity   = "quantity"
	AssertAbsent     = "absent"
	AssertToast      = "toast"
	AssertIdentity   = "identity"
	AssertAnimations = "animations"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if len(s.Setup) > 0 && s.Identity == "" {
		return fmt.Errorf("setup requires identity")
	}

	for i, it := range s.Setup {
		if it.ProductID == "" {
			return fmt.Errorf("setup[%d]: product_id is required", i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("setup[%d]: quantity must be at least 1", i)
		}
		price, err := parsePrice(it.Price)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if price.IsNegative() {
			return fmt.Errorf("setup[%d]: price must not be negative", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpAdd, OpIncrement, OpDecrement, OpRemove:
		if st.ProductID == "" {
			return fmt.Errorf("steps[%d]: product_id is required for %s", index, st.Op)
		}
		if _, err := parsePrice(st.Price); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case OpClear, OpRefresh, OpLogout:
	case OpAdvance:
		d, err := time.ParseDuration(st.Duration)
		if err != nil {
			return fmt.Errorf("steps[%d]: duration: %w", index, err)
		}
		if d <= 0 {
			return fmt.Errorf("steps[%d]: duration must be positive", index)
		}
	case OpLogin:
		if st.Credential == "" {
			return fmt.Errorf("steps[%d]: credential is required for login", index)
		}
	case OpFail, OpHeal:
		switch st.StoreOp {
		case testutil.OpList, testutil.OpUpsert, testutil.OpSet, testutil.OpDelete, testutil.OpClear:
		default:
			return fmt.Errorf("steps[%d]: unknown store_op %q", index, st.StoreOp)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTotal:
		if _, err := decimal.NewFromString(a.Total); err != nil {
			return fmt.Errorf("assertions[%d]: total must be a decimal: %w", index, err)
		}
	case AssertCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for count", index)
		}
	case AssertQuantity:
		if a.ProductID == "" || a.Quantity < 1 {
			return fmt.Errorf("assertions[%d]: product_id and a positive quantity are required for quantity", index)
		}
	case AssertAbsent:
		if a.ProductID == "" {
			return fmt.Errorf("assertions[%d]: product_id is required for absent", index)
		}
	case AssertToast:
		if a.Message == "" && a.Visible == nil {
			return fmt.Errorf("assertions[%d]: message or visible is required for toast", index)
		}
	case AssertIdentity:
		if a.Identity == nil && a.Anonymous == nil {
			return fmt.Errorf("assertions[%d]: identity or anonymous is required for identity", index)
		}
	case AssertAnimations:
		// An empty list asserts that nothing is animating.
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// parsePrice accepts an empty string as zero. Negative step prices are
// allowed so scenarios can exercise input validation.
func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %q: %w", s, err)
	}
	return d, nil
}
