package sized

import (
	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
)

// OptionsFromEnv loads CreateOptions from environment variables named with the provided prefix,
// such as SIZEDALLOC_BATCH_SIZE, SIZEDALLOC_EXPAND_POLICY, SIZEDALLOC_FREE_POLICY and
// SIZEDALLOC_MAX_ELEMENTS. Policies are read by name: "fixed" or "growable", and "pooled" or
// "per-allocation". The Logger field is never loaded.
func OptionsFromEnv(prefix string) (CreateOptions, error) {
	var options CreateOptions
	err := envconfig.Process(prefix, &options)
	if err != nil {
		return CreateOptions{}, errors.Wrap(err, "failed to load allocator options from the environment")
	}

	return options, nil
}
