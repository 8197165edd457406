package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientList(t *testing.T) {
	settings := EmailNotificationSettings{
		Recipients: "sales@example.com\n\n  ops@example.com  \nwarehouse@example.com\n",
	}

	assert.Equal(t, []string{
		"sales@example.com",
		"ops@example.com",
		"warehouse@example.com",
	}, settings.RecipientList())

	empty := EmailNotificationSettings{}
	assert.Nil(t, empty.RecipientList())
}

func TestRenderSubject(t *testing.T) {
	settings := EmailNotificationSettings{
		SubjectTemplate: "Order {order_number} received",
	}
	assert.Equal(t, "Order 3.150126 received", settings.RenderSubject("3.150126"))

	// Empty template falls back to the default form
	settings.SubjectTemplate = ""
	assert.Equal(t, "New order #3.150126", settings.RenderSubject("3.150126"))

	// Template without the placeholder is used verbatim
	settings.SubjectTemplate = "You have mail"
	assert.Equal(t, "You have mail", settings.RenderSubject("3.150126"))
}

func TestActiveSettingsAndRecipients(t *testing.T) {
	env := newTestEnv(t)

	// No rows at all
	settings, err := ActiveSettings(env.db)
	require.NoError(t, err)
	assert.Nil(t, settings)

	recipients, err := ActiveRecipients(env.db)
	require.NoError(t, err)
	assert.Empty(t, recipients)

	rows := []EmailNotificationSettings{
		{Name: "Primary", IsActive: true, Recipients: "a@example.com\nb@example.com"},
		{Name: "Disabled", IsActive: false, Recipients: "ignored@example.com"},
		{Name: "Backup", IsActive: true, Recipients: "c@example.com"},
	}
	for i := range rows {
		require.NoError(t, env.db.Create(&rows[i]).Error)
	}

	// First active row wins as the default settings
	settings, err = ActiveSettings(env.db)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "Primary", settings.Name)

	// Recipients collected across every active row, inactive skipped
	recipients, err = ActiveRecipients(env.db)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, recipients)
}
