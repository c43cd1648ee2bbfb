package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cardops/shiplane/pkg/domain"
)

// LoadPipelineConfig reads and seals the config file at filepath.
//
// Any problem, be it unreadable file, broken yaml or a missing
// required value, comes back as an error. A run never starts on a
// half-usable config.
func LoadPipelineConfig(filepath string) (*PipelineConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, domain.NewConfigurationCausedBy(
			fmt.Sprintf("can not read config file %s", filepath), err,
		)
	}
	return Unmarshal(content)
}

// Unmarshal parses and seals a yaml config.
//
// Sealing panics on misconfiguration, naming the broken path. The
// panic is recovered here and reported as a configuration error, so
// callers deal with errors only.
func Unmarshal(conf []byte) (out *PipelineConfig, err error) {
	var marshalled *PipelineConfigMarshall
	if err := yaml.Unmarshal(conf, &marshalled); err != nil {
		return nil, domain.NewConfigurationCausedBy("can not parse config", err)
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = domain.NewConfiguration(fmt.Sprint(r))
		}
	}()
	return TrySeal(marshalled), nil
}
