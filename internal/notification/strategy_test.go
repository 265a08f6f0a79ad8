package notification

import "testing"

func TestParseNotificationNumberHistoryID(t *testing.T) {
	n, err := ParseNotification([]byte(`{"emailAddress":"alice@example.com","historyId":105}`))
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if n.EmailAddress != "alice@example.com" {
		t.Errorf("EmailAddress = %q", n.EmailAddress)
	}
	if n.HistoryID.String() != "105" {
		t.Errorf("HistoryID = %q, want 105", n.HistoryID.String())
	}
}

func TestParseNotificationStringHistoryID(t *testing.T) {
	n, err := ParseNotification([]byte(`{"emailAddress":"alice@example.com","historyId":"99999999999999999999"}`))
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if n.HistoryID.String() != "99999999999999999999" {
		t.Errorf("HistoryID = %q, precision lost", n.HistoryID.String())
	}
}

func TestParseNotificationFailsClosed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"missing email", `{"historyId":105}`},
		{"missing history id", `{"emailAddress":"alice@example.com"}`},
		{"garbage history id", `{"emailAddress":"alice@example.com","historyId":"abc"}`},
		{"negative history id", `{"emailAddress":"alice@example.com","historyId":"-1"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseNotification([]byte(tc.data)); err == nil {
				t.Errorf("ParseNotification(%s) should fail", tc.data)
			}
		})
	}
}
