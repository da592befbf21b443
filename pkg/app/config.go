package app

import (
	"github.com/evgeny-myasishchev/statements-connector/config"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

// LoadConfig will load app config and setup logging system accordingly
func LoadConfig() (*config.AppConfig, error) {
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		return nil, err
	}

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogMode(appCfg.Log.Mode.Value())
		setup.SetLogLevel(appCfg.Log.Level.Value())
		setup.SetLogFile(appCfg.Log.File.Value())
	})

	return appCfg, nil
}
