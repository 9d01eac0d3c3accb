package models_test

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"
)

// testContainer describes a throwaway docker container and how to tell it is ready.
type testContainer struct {
	prefix  string
	image   string
	port    string
	env     []string
	args    []string
	probe   []string
	timeout time.Duration
}

var (
	redisContainer = testContainer{
		prefix:  "billing-test-redis",
		image:   "redis:7-alpine",
		port:    "6379/tcp",
		probe:   []string{"redis-cli", "ping"},
		timeout: 60 * time.Second,
	}
	mysqlContainer = testContainer{
		prefix:  "billing-test-mysql",
		image:   "mysql:8.0",
		port:    "3306/tcp",
		env:     []string{"MYSQL_ROOT_PASSWORD=testpw", "MYSQL_DATABASE=billing_test"},
		args:    []string{"--default-authentication-plugin=mysql_native_password"},
		probe:   []string{"mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent"},
		timeout: 120 * time.Second,
	}
)

// start runs the container on a random loopback port and waits for the probe to pass.
func (c testContainer) start(t *testing.T) (name, hostPort string) {
	t.Helper()
	name = fmt.Sprintf("%s-%d", c.prefix, time.Now().UnixNano())
	args := []string{"run", "-d", "--name", name}
	for _, e := range c.env {
		args = append(args, "-e", e)
	}
	containerPort := strings.TrimSuffix(c.port, "/tcp")
	args = append(args, "-p", "127.0.0.1:0:"+containerPort, c.image)
	args = append(args, c.args...)

	if out, err := dockerRun(args...); err != nil {
		t.Fatalf("start %s container: %v\n%s", c.image, err, out)
	}
	hostPort, err := dockerHostPort(name, c.port)
	if err != nil {
		_ = dockerRmForce(name)
		t.Fatalf("%s docker port: %v", c.image, err)
	}

	deadline := time.Now().Add(c.timeout)
	for time.Now().Before(deadline) {
		if _, err := dockerRun(append([]string{"exec", name}, c.probe...)...); err == nil {
			return name, hostPort
		}
		time.Sleep(500 * time.Millisecond)
	}
	_ = dockerRmForce(name)
	t.Fatalf("%s did not become ready", c.image)
	return "", ""
}

var hostPortPattern = regexp.MustCompile(`:(\d+)`)

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// "127.0.0.1:49154\n"
	m := hostPortPattern.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
