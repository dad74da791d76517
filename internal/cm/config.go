package cm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/models"
)

// SafetyValveName is the service config item holding the
// ranger-hdfs-security.xml snippet.
const SafetyValveName = "ranger_security_safety_valve"

const safetyValveMessage = "Modified HDFS Service Advanced Configuration Snippet (Safety Valve) for ranger-hdfs-security.xml"

// PayloadStore returns the configuration blob for a combination.
type PayloadStore interface {
	Load(key models.ConfigKey) ([]byte, error)
}

// FilePayloadStore reads rms-<yes|no>-optimization-<yes|no>.xml from Dir.
type FilePayloadStore struct {
	Dir string
}

func (s FilePayloadStore) Path(key models.ConfigKey) string {
	name := fmt.Sprintf("rms-%s-optimization-%s.xml", models.Label(key.RMS), models.Label(key.Optimization))
	return filepath.Join(s.Dir, name)
}

func (s FilePayloadStore) Load(key models.ConfigKey) ([]byte, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read config payload for %s: %w", key, err)
	}
	return data, nil
}

type configItem struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

type configList struct {
	Items []configItem `json:"items"`
}

type batchItem struct {
	Method      string     `json:"method"`
	URL         string     `json:"url"`
	Body        configList `json:"body"`
	ContentType string     `json:"contentType"`
}

type batchRequest struct {
	Items []batchItem `json:"items"`
}

// ConfigUpdater pushes safety-valve payloads to the service. It must only be
// used while the service is stopped.
type ConfigUpdater struct {
	client *Client
	store  PayloadStore
}

func NewConfigUpdater(client *Client, store PayloadStore) *ConfigUpdater {
	return &ConfigUpdater{client: client, store: store}
}

// ApplyConfig submits the payload for key as a single-item batch update.
func (u *ConfigUpdater) ApplyConfig(ctx context.Context, key models.ConfigKey) error {
	payload, err := u.store.Load(key)
	if err != nil {
		return err
	}
	value := string(payload)

	req := batchRequest{
		Items: []batchItem{{
			Method:      http.MethodPut,
			URL:         u.client.servicePath("v31", "/config") + "?message=" + escapeQuery(safetyValveMessage),
			Body:        configList{Items: []configItem{{Name: SafetyValveName, Value: &value}}},
			ContentType: "application/json",
		}},
	}
	if err := u.client.do(ctx, http.MethodPost, "/api/v15/batch", nil, req, nil); err != nil {
		return fmt.Errorf("failed to update %s configs: %w", key, err)
	}

	log.WithField("combination", key.String()).Info("updated ranger-hdfs-security.xml safety valve")
	return nil
}

// SnapshotConfig saves the current safety-valve value to path. It reports
// whether a value was present.
func (u *ConfigUpdater) SnapshotConfig(ctx context.Context, path string) (bool, error) {
	var current configList
	if err := u.client.do(ctx, http.MethodGet, u.client.servicePath("v56", "/config"), nil, nil, &current); err != nil {
		return false, fmt.Errorf("failed to read service config: %w", err)
	}
	if len(current.Items) == 0 {
		log.Warn("no service configs present")
		return false, nil
	}

	for _, item := range current.Items {
		if item.Name != SafetyValveName || item.Value == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(*item.Value), 0644); err != nil {
			return false, fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.WithField("file", path).Info("saved pre-run safety valve configs")
		return true, nil
	}

	log.Warn("no safety valve configs present")
	return false, nil
}
