// Package resupmgr wires configuration, logging and the store client
// together for resup applications. The CLI builds one Manager per run;
// library users can do the same and override pieces through userCfg.
package resupmgr

import (
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/simres/resup/pkg/store"
	"github.com/simres/resup/pkg/uploader"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const auditSource = "resup"

type Manager struct {
	Store  *store.Client
	Logger logrus.FieldLogger
	Cfg    *viper.Viper
}

// NewManager builds a manager from defaults, the optional config file and
// the userCfg overrides. Recognized userCfg keys: "config-file" (string)
// and "logger" (logrus.FieldLogger).
func NewManager(userCfg map[string]interface{}) (*Manager, error) {
	var err error
	mgr := &Manager{}

	if loggerRaw, ok := userCfg["logger"]; ok {
		if logger, ok := loggerRaw.(logrus.FieldLogger); ok {
			mgr.Logger = logger
		} else {
			return nil, errors.New("option 'logger' must satisfy logrus.FieldLogger")
		}
	} else {
		mgr.Logger = logrus.New()
	}

	if cfgPathRaw, ok := userCfg["config-file"]; ok {
		if cfgPath, ok := cfgPathRaw.(string); ok {
			err = mgr.initConfig(&cfgPath)
		} else {
			return nil, errors.New("option 'config-file' must be of type string")
		}
	} else {
		err = mgr.initConfig(nil)
	}
	if err != nil {
		return nil, err
	}

	if url := mgr.Cfg.GetString("store.url"); url != "" {
		mgr.Store = store.NewClient(url,
			mgr.Cfg.GetString("store.token"),
			mgr.Cfg.GetDuration("store.timeout"),
			mgr.Logger)
	}

	return mgr, nil
}

// NewCase builds an upload case for the metadata file at
// caseMetadataPath. A missing or invalid metadata file is reported but
// still yields a usable, unregistered case.
func (mgr *Manager) NewCase(caseMetadataPath string) (*uploader.Case, error) {
	if mgr.Store == nil {
		return nil, errors.New("no store configured, set store.url")
	}

	mode, err := uploader.ParseTransferMode(mgr.Cfg.GetString("upload.mode"))
	if err != nil {
		return nil, err
	}

	meta, err := uploader.LoadCaseMetadata(caseMetadataPath)
	if err != nil {
		mgr.Logger.WithError(err).Warn("Invalid case metadata, case will be unregistered")
	}

	return uploader.NewCase(meta, mgr.Store, mgr.Logger, uploader.CaseOptions{
		TransferMode:   mode,
		ConfigPath:     mgr.Cfg.GetString("upload.config_path"),
		ParametersPath: mgr.Cfg.GetString("upload.parameters_path"),
		RegisterDelay:  mgr.Cfg.GetDuration("upload.register_delay"),
		Audit:          store.NewAuditLog(mgr.Store, auditSource, mgr.Logger),
	}), nil
}

func (mgr *Manager) initConfig(cfgPath *string) error {
	// Private viper context so library users' own viper usage is not
	// disturbed.
	mgr.Cfg = viper.New()

	mgr.Cfg.SetDefault("store.url", "")
	mgr.Cfg.SetDefault("store.timeout", store.DefaultTimeout)
	mgr.Cfg.BindEnv("store.url", "RESUP_STORE_URL")
	mgr.Cfg.BindEnv("store.token", "RESUP_TOKEN")

	mgr.Cfg.SetDefault("upload.threads", uploader.DefaultWorkers)
	mgr.Cfg.SetDefault("upload.mode", "copy")
	mgr.Cfg.SetDefault("upload.config_path", "fmuconfig/output/global_variables.yml")
	mgr.Cfg.SetDefault("upload.parameters_path", "parameters.txt")
	mgr.Cfg.SetDefault("upload.register_delay", "3s")

	if cfgPath != nil {
		expanded, err := homedir.Expand(*cfgPath)
		if err != nil {
			return errors.Wrap(err, "Bad config path")
		}
		mgr.Cfg.SetConfigFile(expanded)
		if err := mgr.Cfg.ReadInConfig(); err != nil {
			return errors.Wrap(err, "Failed to load config")
		}
		return nil
	}

	// Default search path is ./configs/resup.* (yaml, json, ...). Running
	// without a config file is fine; everything has a default or an env
	// binding.
	mgr.Cfg.AddConfigPath("./configs")
	mgr.Cfg.SetConfigName("resup")
	if err := mgr.Cfg.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(err, "Failed to load config")
		}
	}
	return nil
}
