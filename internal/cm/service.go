package cm

import (
	"context"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	timeutils "github.com/imishinist/nnperf/internal/time"
)

const (
	CommandStop  = "Stop"
	CommandStart = "Start"
)

type commandList struct {
	Items []struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Active bool   `json:"active"`
	} `json:"items"`
}

// ServiceController stops and starts the service under test. Commands run
// asynchronously on the management server, so completion is observed by
// polling for active commands of the same name.
type ServiceController struct {
	client *Client
	sleep  func(context.Context, time.Duration) error
}

func NewServiceController(client *Client) *ServiceController {
	return &ServiceController{client: client, sleep: timeutils.Sleep}
}

func (s *ServiceController) Stop(ctx context.Context) error {
	log.WithField("service", s.client.service).Info("stopping service")
	return s.client.do(ctx, http.MethodPost, s.client.servicePath("v1", "/commands/stop"), nil, nil, nil)
}

func (s *ServiceController) Start(ctx context.Context) error {
	log.WithField("service", s.client.service).Info("starting service")
	return s.client.do(ctx, http.MethodPost, s.client.servicePath("v1", "/commands/start"), nil, nil, nil)
}

// AwaitCompletion polls every interval until no command called name is
// active on the service. It has no deadline of its own.
func (s *ServiceController) AwaitCompletion(ctx context.Context, name string, interval time.Duration) error {
	path := s.client.servicePath("v56", "/commands")
	query := url.Values{"name": []string{name}}
	for {
		var active commandList
		if err := s.client.do(ctx, http.MethodGet, path, query, nil, &active); err != nil {
			return err
		}
		if len(active.Items) == 0 {
			log.WithField("command", name).Info("command completed")
			return nil
		}

		first := active.Items[0]
		log.WithFields(log.Fields{
			"command": first.Name,
			"active":  first.Active,
		}).Infof("command %s is still running", name)

		if err := s.sleep(ctx, interval); err != nil {
			return err
		}
	}
}
