package sqlcache

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCRUDProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("set-get round trip in one session", prop.ForAll(
		func(key, value string) bool {
			c, err := Open(testOptions(t.TempDir(), nil))
			if err != nil {
				return false
			}
			defer c.Close()

			if err := c.Set("g", key, value, 0); err != nil {
				return false
			}
			got, ok := c.Get("g", key)
			return ok && got == value
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AnyString(),
	))

	properties.Property("unset key is not found", prop.ForAll(
		func(key string) bool {
			c, err := Open(testOptions(t.TempDir(), nil))
			if err != nil {
				return false
			}
			defer c.Close()

			_, ok := c.Get("g", key)
			return !ok && !c.Exists("g", key)
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.Property("values survive a reopen", prop.ForAll(
		func(key, value string) bool {
			dir := t.TempDir()
			c, err := Open(testOptions(dir, nil))
			if err != nil {
				return false
			}
			if err := c.Set("g", key, value, 0); err != nil {
				return false
			}
			if err := c.Close(); err != nil {
				return false
			}

			c2, err := Open(testOptions(dir, nil))
			if err != nil {
				return false
			}
			defer c2.Close()
			got, ok := c2.Get("g", key)
			return ok && got == value
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
