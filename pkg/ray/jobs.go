package ray

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/Eventual-Inc/daft-launcher/pkg/tunnel"
	"github.com/Eventual-Inc/daft-launcher/shared"
)

// JobStatus is the remote endpoint's job status enum.
type JobStatus string

const (
	StatusPending   JobStatus = "PENDING"
	StatusRunning   JobStatus = "RUNNING"
	StatusSucceeded JobStatus = "SUCCEEDED"
	StatusFailed    JobStatus = "FAILED"
	StatusStopped   JobStatus = "STOPPED"
)

// Terminal reports whether no further transition can occur from the status.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusStopped:
		return true
	default:
		return false
	}
}

// DefaultEndpoint is the job endpoint as exposed on loopback by an active
// tunnel session.
var DefaultEndpoint = fmt.Sprintf("http://127.0.0.1:%d", tunnel.DashboardPort)

// JobClient talks to the remote job-execution endpoint over the tunnel's
// forwarded dashboard port.
type JobClient struct {
	base string
	http *http.Client
}

// NewJobClient builds a client for the endpoint at base, e.g.
// "http://127.0.0.1:8265".
func NewJobClient(base string) *JobClient {
	return &JobClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ping probes the endpoint's version route. Used by the connect-retry loop
// to wait for the remote listener to come up.
func (c *JobClient) Ping() error {
	resp, err := c.http.Get(c.base + "/api/version")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// Submit ships the working directory wholesale as the job's execution
// context and submits the entrypoint as one job, returning the endpoint's
// opaque job id.
func (c *JobClient) Submit(workingDir, entrypoint string) (string, error) {
	pkg, data, err := packageWorkingDir(workingDir)
	if err != nil {
		return "", err
	}

	if err := c.uploadPackage(pkg, data); err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]any{
		"entrypoint": entrypoint,
		"runtime_env": map[string]any{
			"working_dir": "gcs://" + pkg,
		},
	})
	if err != nil {
		return "", err
	}

	resp, err := c.http.Post(c.base+"/api/jobs/", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", shared.ReturnLogError("job submission failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", shared.ReturnLogError("job submission rejected with status %d: %s",
			resp.StatusCode, string(raw))
	}

	var parsed struct {
		SubmissionID string `json:"submission_id"`
		JobID        string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", shared.ReturnLogError("failed to decode submission response: %v", err)
	}

	id := parsed.SubmissionID
	if id == "" {
		id = parsed.JobID
	}
	if id == "" {
		return "", shared.ReturnLogError("submission response carried no job id")
	}

	return id, nil
}

// TailLogs streams the job's log until the remote side closes the stream,
// forwarding everything to out in arrival order. Job duration is unbounded
// and operator-controlled, so there is no timeout here beyond ctx.
func (c *JobClient) TailLogs(ctx context.Context, id string, out io.Writer) error {
	url := strings.Replace(c.base, "http", "ws", 1) +
		fmt.Sprintf("/api/jobs/%s/logs/tail", id)

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return shared.ReturnLogError("failed to open log stream for job %s: %v", id, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Log messages are operator-sized; the transport's default per-message
	// limit would abort the stream on any large line.
	conn.SetReadLimit(-1)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return shared.ReturnLogError("log stream for job %s broke: %v", id, err)
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
	}
}

// JobInfo is the endpoint's metadata for one job.
type JobInfo struct {
	SubmissionID string    `json:"submission_id"`
	Status       JobStatus `json:"status"`
	Entrypoint   string    `json:"entrypoint"`
	Message      string    `json:"message"`
	StartTime    int64     `json:"start_time"`
	EndTime      int64     `json:"end_time"`
}

// Info fetches the job's metadata.
func (c *JobClient) Info(id string) (*JobInfo, error) {
	resp, err := c.http.Get(c.base + "/api/jobs/" + id)
	if err != nil {
		return nil, shared.ReturnLogError("failed to fetch job %s: %v", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, shared.ReturnLogError("job %s lookup returned status %d", id, resp.StatusCode)
	}

	var info JobInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, shared.ReturnLogError("failed to decode job %s info: %v", id, err)
	}

	return &info, nil
}

// Status fetches the job's current status.
func (c *JobClient) Status(id string) (JobStatus, error) {
	info, err := c.Info(id)
	if err != nil {
		return "", err
	}

	return info.Status, nil
}

func (c *JobClient) uploadPackage(pkg string, data []byte) error {
	req, err := http.NewRequest(http.MethodPut,
		c.base+"/api/packages/gcs/"+pkg, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return shared.ReturnLogError("package upload failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return shared.ReturnLogError("package upload rejected with status %d", resp.StatusCode)
	}

	return nil
}

// packageWorkingDir zips the working directory and names the archive by its
// content hash, so resubmitting identical contents reuses the same package.
func packageWorkingDir(dir string) (string, []byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		f, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = f.Write(data)

		return err
	})
	if err != nil {
		return "", nil, shared.ReturnLogError("failed to package working dir %s: %v", dir, err)
	}
	if err := w.Close(); err != nil {
		return "", nil, err
	}

	sum := sha1.Sum(buf.Bytes())
	name := fmt.Sprintf("_daft_pkg_%x.zip", sum)

	return name, buf.Bytes(), nil
}
