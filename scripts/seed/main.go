// Command seed provisions a demo school through the running API: it
// registers a tenant, builds the class ladder and subject catalogue,
// opens a session with terms, installs a grading scale and records a
// round of scores so reports and rankings have data to show.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) do(method, path string, payload, out interface{}) error {
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&envelope)
		return fmt.Errorf("%s %s: %d %s %s", method, path, res.StatusCode, envelope.Error.Code, envelope.Error.Message)
	}
	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}

type created struct {
	ID string `json:"id"`
}

func main() {
	var (
		base     string
		email    string
		password string
	)
	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&email, "email", "admin@demo.school", "Admin email for the demo tenant")
	flag.StringVar(&password, "password", "changeme1", "Admin password for the demo tenant")
	flag.Parse()

	c := &client{base: base, http: &http.Client{Timeout: 15 * time.Second}}

	if err := c.do(http.MethodPost, "/schools/register", map[string]interface{}{
		"name":           "Demo Grammar School",
		"admin_email":    email,
		"admin_name":     "Demo Admin",
		"admin_password": password,
		"is_secondary":   true,
	}, nil); err != nil {
		log.Fatalf("register school: %v", err)
	}

	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &login); err != nil {
		log.Fatalf("login: %v", err)
	}
	c.token = login.AccessToken

	ladder := []string{"JSS 1", "JSS 2", "JSS 3"}
	levelIDs := make([]string, 0, len(ladder))
	for _, name := range ladder {
		var level created
		if err := c.do(http.MethodPost, "/class-levels", map[string]string{"name": name}, &level); err != nil {
			log.Fatalf("create class level %s: %v", name, err)
		}
		levelIDs = append(levelIDs, level.ID)
	}

	for _, name := range []string{"Mathematics", "English", "Basic Science"} {
		if err := c.do(http.MethodPost, "/subjects", map[string]string{"name": name}, nil); err != nil {
			log.Fatalf("create subject %s: %v", name, err)
		}
	}

	if _, err := replaceScale(c); err != nil {
		log.Fatalf("install grading scale: %v", err)
	}

	var session created
	if err := c.do(http.MethodPost, "/sessions", map[string]string{"name": "2026/2027"}, &session); err != nil {
		log.Fatalf("create session: %v", err)
	}
	if err := c.do(http.MethodPost, "/sessions/"+session.ID+"/current", nil, nil); err != nil {
		log.Fatalf("set current session: %v", err)
	}

	var firstTerm created
	for i, name := range []string{"First Term", "Second Term", "Third Term"} {
		var term created
		if err := c.do(http.MethodPost, "/sessions/"+session.ID+"/terms", map[string]string{"name": name}, &term); err != nil {
			log.Fatalf("create term %s: %v", name, err)
		}
		if i == 0 {
			firstTerm = term
		}
	}
	if err := c.do(http.MethodPost, "/sessions/"+session.ID+"/terms/"+firstTerm.ID+"/current", nil, nil); err != nil {
		log.Fatalf("set current term: %v", err)
	}

	names := []string{"Ada Obi", "Bola Ade", "Chidi Eze", "Dayo Musa"}
	for i, name := range names {
		var student created
		if err := c.do(http.MethodPost, "/students", map[string]string{"name": name}, &student); err != nil {
			log.Fatalf("create student %s: %v", name, err)
		}
		if err := c.do(http.MethodPost, "/enrollments", map[string]string{
			"student_id":     student.ID,
			"session_id":     session.ID,
			"class_level_id": levelIDs[0],
		}, nil); err != nil {
			log.Fatalf("enroll %s: %v", name, err)
		}
		if err := c.do(http.MethodPost, "/results", map[string]interface{}{
			"student_id": student.ID,
			"entries": []map[string]interface{}{
				{"subject": "Mathematics", "first_test": 10 + i, "second_test": 12, "third_test": 13, "exam": 50 - i},
				{"subject": "English", "first_test": 8 + i, "second_test": 10, "third_test": 11, "exam": 45},
				{"subject": "Basic Science", "first_test": 12, "second_test": 14, "third_test": 9, "exam": 40 + i},
			},
		}, nil); err != nil {
			log.Fatalf("record scores for %s: %v", name, err)
		}
	}

	log.Printf("seeded demo school: session %s, %d students in %s", session.ID, len(names), ladder[0])
}

func replaceScale(c *client) (created, error) {
	var out created
	err := c.do(http.MethodPut, "/grading/scale", map[string]interface{}{
		"bands": []map[string]interface{}{
			{"min_score": 70, "max_score": 100, "grade": "A", "remark": "Excellent"},
			{"min_score": 60, "max_score": 69, "grade": "B", "remark": "Very Good"},
			{"min_score": 50, "max_score": 59, "grade": "C", "remark": "Good"},
			{"min_score": 40, "max_score": 49, "grade": "D", "remark": "Fair"},
			{"min_score": 0, "max_score": 39, "grade": "F", "remark": "Fail"},
		},
	}, &out)
	return out, err
}
