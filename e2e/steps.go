package e2e

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// RegisterSteps binds the step definitions to a scenario context.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// User lifecycle
	ctx.Step(`^a user registered with email "([^"]*)"$`, tc.registeredUser)
	ctx.Step(`^I create a user with email "([^"]*)"$`, tc.createUser)
	ctx.Step(`^I fetch the user$`, tc.fetchUser)
	ctx.Step(`^I fetch a user that does not exist$`, tc.fetchMissingUser)
	ctx.Step(`^I change the user's email to "([^"]*)"$`, tc.changeEmail)
	ctx.Step(`^I delete the user$`, tc.deleteUser)

	// Consent flow
	ctx.Step(`^the user submits consents:$`, tc.submitConsents)
	ctx.Step(`^I list the user's consents$`, tc.listConsents)
	ctx.Step(`^I list the user's consent history$`, tc.listHistory)
	ctx.Step(`^I list the user's consent history with offset (\d+) and limit (\d+)$`, tc.listHistoryPage)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response should list (\d+) entries$`, tc.responseShouldListEntries)
	ctx.Step(`^consent "([^"]*)" should be (enabled|disabled)$`, tc.consentShouldBe)
	ctx.Step(`^the error description should mention "([^"]*)"$`, tc.errorShouldMention)
}

func (tc *TestContext) registeredUser(email string) error {
	if err := tc.createUser(email); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != 201 {
		return fmt.Errorf("user setup failed: %s", tc.LastResponseBody)
	}
	id, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	tc.UserID, _ = id.(string)
	return nil
}

func (tc *TestContext) createUser(email string) error {
	return tc.POST("/users", map[string]string{"email": email})
}

func (tc *TestContext) fetchUser() error {
	return tc.GET("/users/" + tc.UserID)
}

func (tc *TestContext) fetchMissingUser() error {
	return tc.GET("/users/" + uuid.NewString())
}

func (tc *TestContext) changeEmail(email string) error {
	return tc.PUT("/users/"+tc.UserID, map[string]string{"email": email})
}

func (tc *TestContext) deleteUser() error {
	return tc.DELETE("/users/" + tc.UserID)
}

func (tc *TestContext) submitConsents(table *godog.Table) error {
	consents := make([]map[string]any, 0, len(table.Rows))
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		if len(row.Cells) != 2 {
			return fmt.Errorf("consent table rows need id and enabled columns")
		}
		enabled, err := strconv.ParseBool(row.Cells[1].Value)
		if err != nil {
			return fmt.Errorf("bad enabled value %q: %w", row.Cells[1].Value, err)
		}
		consents = append(consents, map[string]any{
			"id":      row.Cells[0].Value,
			"enabled": enabled,
		})
	}
	return tc.POST("/events", map[string]any{
		"user":     map[string]string{"id": tc.UserID},
		"consents": consents,
	})
}

func (tc *TestContext) listConsents() error {
	return tc.GET("/users/" + tc.UserID + "/consents")
}

func (tc *TestContext) listHistory() error {
	return tc.GET("/users/" + tc.UserID + "/consents/history")
}

func (tc *TestContext) listHistoryPage(offset, limit int) error {
	return tc.GET(fmt.Sprintf("/users/%s/consents/history?offset=%d&limit=%d", tc.UserID, offset, limit))
}

func (tc *TestContext) responseStatusShouldBe(status int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(field, want string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	got := fmt.Sprintf("%v", value)
	if got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}

func (tc *TestContext) responseShouldListEntries(count int) error {
	entries, err := tc.ResponseList()
	if err != nil {
		return err
	}
	if len(entries) != count {
		return fmt.Errorf("expected %d entries, got %d: %s", count, len(entries), tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) consentShouldBe(id, state string) error {
	entries, err := tc.ResponseList()
	if err != nil {
		return err
	}
	want := state == "enabled"
	for _, entry := range entries {
		if entry["id"] == id {
			if enabled, _ := entry["enabled"].(bool); enabled != want {
				return fmt.Errorf("consent %s is enabled=%v, expected %s", id, enabled, state)
			}
			return nil
		}
	}
	return fmt.Errorf("consent %s not present in response: %s", id, tc.LastResponseBody)
}

func (tc *TestContext) errorShouldMention(fragment string) error {
	value, err := tc.GetResponseField("error_description")
	if err != nil {
		return err
	}
	description, _ := value.(string)
	if !strings.Contains(strings.ToLower(description), strings.ToLower(fragment)) {
		return fmt.Errorf("error description %q does not mention %q", description, fragment)
	}
	return nil
}
