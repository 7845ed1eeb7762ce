//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/mernauth/authserver/config"
	"github.com/mernauth/authserver/internal/db"
	"github.com/mernauth/authserver/internal/server"
	"golang.org/x/crypto/bcrypt"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestSessionLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("user_%d", time.Now().UnixNano())
	password := "Testpass123!"

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	reg, err := registerUser(t, client, baseURL, username, password)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	if reg.AccessToken == "" || reg.RefreshToken == "" {
		t.Fatalf("register returned incomplete tokens: %+v", reg)
	}

	accessToken, err := loginUser(t, client, baseURL, username, password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// The login cookie alone must be enough to refresh.
	refreshed, err := refreshToken(t, client, baseURL)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed == "" {
		t.Fatal("refresh returned no access token")
	}

	user, err := getUser(t, client, baseURL, accessToken, username)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user["username"] != username {
		t.Fatalf("unexpected username: %v", user["username"])
	}
	if _, ok := user["password"]; ok {
		t.Fatal("user response leaks the password field")
	}

	if err := updateUser(t, client, baseURL, accessToken, "Integration Tester"); err != nil {
		t.Fatalf("update user: %v", err)
	}

	if err := logout(t, client, baseURL); err != nil {
		t.Fatalf("logout: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("reset_%d", time.Now().UnixNano())
	password := "Testpass123!"
	newPassword := "Newpass456!"
	otpCode := "424242"

	client := &http.Client{Timeout: 10 * time.Second}

	if _, err := registerUser(t, client, baseURL, username, password); err != nil {
		t.Fatalf("register user: %v", err)
	}

	// The code is delivered out of band; seed it straight into the store
	// the way /generateotp would.
	if err := seedOtp(username, otpCode); err != nil {
		t.Fatalf("seed otp: %v", err)
	}

	// Resetting before verification must be rejected.
	status, err := resetPassword(t, client, baseURL, username, newPassword)
	if err != nil {
		t.Fatalf("premature reset: %v", err)
	}
	if status != http.StatusBadRequest {
		t.Fatalf("premature reset status = %d, want 400", status)
	}

	if err := verifyOtp(t, client, baseURL, username, otpCode); err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	status, err = resetPassword(t, client, baseURL, username, newPassword)
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", status)
	}

	// Old credentials are dead, new ones work.
	if _, err := loginUser(t, client, baseURL, username, password); err == nil {
		t.Fatal("old password still accepted after reset")
	}
	if _, err := loginUser(t, client, baseURL, username, newPassword); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

type registerResponse struct {
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func registerUser(t *testing.T, client *http.Client, baseURL, username, password string) (registerResponse, error) {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"password": password,
	}
	resp, err := postJSON(client, baseURL+"/register", payload)
	if err != nil {
		return registerResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return registerResponse{}, fmt.Errorf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return registerResponse{}, err
	}
	return parsed, nil
}

func loginUser(t *testing.T, client *http.Client, baseURL, username, password string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"password": password,
	}
	resp, err := postJSON(client, baseURL+"/login", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("missing access token in login response")
	}
	return parsed.AccessToken, nil
}

func refreshToken(t *testing.T, client *http.Client, baseURL string) (string, error) {
	t.Helper()

	resp, err := client.Get(baseURL + "/refresh")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("refresh status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.AccessToken, nil
}

func getUser(t *testing.T, client *http.Client, baseURL, token, username string) (map[string]any, error) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/user/"+username, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get user status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func updateUser(t *testing.T, client *http.Client, baseURL, token, displayName string) error {
	t.Helper()

	payload := map[string]string{"displayName": displayName}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPut, baseURL+"/updateuser", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("update user status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func logout(t *testing.T, client *http.Client, baseURL string) error {
	t.Helper()

	resp, err := client.Post(baseURL+"/logout", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("logout status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func verifyOtp(t *testing.T, client *http.Client, baseURL, username, code string) error {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"otp":      code,
	}
	resp, err := postJSON(client, baseURL+"/verifyotp", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("verify otp status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func resetPassword(t *testing.T, client *http.Client, baseURL, username, password string) (int, error) {
	t.Helper()

	payload := map[string]string{
		"username":        username,
		"password":        password,
		"confirmPassword": password,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPut, baseURL+"/resetpassword", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func postJSON(client *http.Client, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return client.Post(url, "application/json", bytes.NewReader(body))
}

// seedOtp writes a known passcode and an open reset session for the user,
// standing in for the email delivery step.
func seedOtp(username, code string) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	expiresAt := time.Now().Add(time.Hour)
	_, err = conn.ExecContext(ctx, `
		INSERT INTO password_otps (username, otp_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET otp_hash = $2, expires_at = $3
	`, username, string(hash), expiresAt)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO reset_sessions (username, verified, expires_at)
		VALUES ($1, FALSE, $2)
		ON CONFLICT (username) DO UPDATE SET verified = FALSE, expires_at = $2
	`, username, expiresAt)
	return err
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("ACCESS_TOKEN_SECRET", "test-access-secret")
	_ = os.Setenv("REFRESH_TOKEN_SECRET", "test-refresh-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "mernauth")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "mernauth_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("BCRYPT_COST", "4")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
