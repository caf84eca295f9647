// Package esstore persists job records as documents in an Elasticsearch
// index, addressed by id, mirroring the original ElasticSearchStore. No
// Elasticsearch client library appears anywhere in the retrieved pack,
// so this talks to the REST API directly through net/http using the
// same codec.JsonCodec the other backends already use for their own
// wire encoding (see DESIGN.md for why this stays on the standard
// library instead of fabricating a client dependency).
package esstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"oss.nandlabs.io/ecscheduler/codec"
	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

var jsonCodec = codec.JsonCodec()

// Store is an Elasticsearch-backed Store. One document per job id, with
// the id used directly as the document _id.
type Store struct {
	hosts  []string
	index  string
	client *http.Client
}

// New opens a Store against index on the first reachable host in hosts.
// Hosts are tried in order on every request so a single node outage
// does not fail the store outright.
func New(index string, hosts []string) (*Store, error) {
	if index == "" {
		return nil, fmt.Errorf("esstore: index name required")
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("esstore: at least one host required")
	}
	s := &Store{index: index, hosts: hosts, client: &http.Client{}}
	if err := s.ensureIndex(); err != nil {
		return nil, err
	}
	logger.InfoF("esstore: initialized with index=%s hosts=%v", index, hosts)
	return s, nil
}

type esHit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

func (s *Store) ensureIndex() error {
	resp, err := s.do(context.Background(), http.MethodHead, "/"+s.index, nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	logger.Warn("esstore: index not found; creating index " + s.index)
	createResp, err := s.do(context.Background(), http.MethodPut, "/"+s.index, nil)
	if err != nil {
		return err
	}
	defer closeBody(createResp)
	if createResp.StatusCode >= 300 {
		return fmt.Errorf("esstore: create index %s: status %d", s.index, createResp.StatusCode)
	}
	return nil
}

func (s *Store) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	var lastErr error
	for _, host := range s.hosts {
		url := strings.TrimRight(host, "/") + path
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			logger.WarnF("esstore: request to %s failed: %v", host, err)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("esstore: all hosts unreachable: %w", lastErr)
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}

func (s *Store) LoadAll(ctx context.Context) ([]*jobmodel.PersistedJob, error) {
	logger.InfoF("esstore: loading jobs from index %s", s.index)
	resp, err := s.do(ctx, http.MethodGet, "/"+s.index+"/_search?size=10000", nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("esstore: search %s: status %d", s.index, resp.StatusCode)
	}

	var parsed esSearchResponse
	if err := jsonCodec.Read(resp.Body, &parsed); err != nil {
		return nil, err
	}

	out := make([]*jobmodel.PersistedJob, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var job jobmodel.PersistedJob
		if err := json.Unmarshal(hit.Source, &job); err != nil {
			logger.ErrorF("esstore: failed to decode hit %s: %v", hit.ID, err)
			continue
		}
		job.ID = hit.ID
		out = append(out, &job)
	}
	return out, nil
}

func (s *Store) putDoc(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	resp, err := s.do(ctx, http.MethodPut, "/"+s.index+"/_doc/"+id, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("esstore: put document %s: status %d", id, resp.StatusCode)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	return s.putDoc(ctx, id, data)
}

func (s *Store) Update(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	return s.putDoc(ctx, id, data)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/"+s.index+"/_doc/"+id, nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("esstore: delete document %s: status %d", id, resp.StatusCode)
	}
	return nil
}
