package models

import (
	"errors"
	"testing"
)

func TestParseChannel(t *testing.T) {
	cases := []struct {
		in      string
		want    Channel
		wantErr bool
	}{
		{"WHATSAPP_TEXT", ChannelWhatsAppText, false},
		{"WHATSAPP_VOICE", ChannelWhatsAppVoice, false},
		{"EMAIL", ChannelEmail, false},
		{"SMS", "", true},
		{"", "", true},
		{"whatsapp_text", "", true},
	}
	for _, c := range cases {
		got, err := ParseChannel(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseChannel(%q): expected error, got %q", c.in, got)
			} else if !errors.Is(err, ErrDataIntegrity) {
				t.Errorf("ParseChannel(%q): error %v is not ErrDataIntegrity", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChannel(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseChannel(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseIntent(t *testing.T) {
	for _, valid := range []string{"COMPLETION", "UPI_QUERY", "OPT_OUT", "CONFUSED", "GENERAL_QUERY"} {
		if _, err := ParseIntent(valid); err != nil {
			t.Errorf("ParseIntent(%q): unexpected error: %v", valid, err)
		}
	}
	if _, err := ParseIntent("PAYMENT"); !errors.Is(err, ErrDataIntegrity) {
		t.Errorf("ParseIntent(PAYMENT): expected ErrDataIntegrity, got %v", err)
	}
}

func TestParseTriggerType(t *testing.T) {
	if _, err := ParseTriggerType("REPLY_BASED"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseTriggerType("MANUAL"); !errors.Is(err, ErrDataIntegrity) {
		t.Errorf("expected ErrDataIntegrity, got %v", err)
	}
}

func TestUserValidate(t *testing.T) {
	u := User{Name: "Asha", PhoneNumber: "+911234567890", UserType: UserTypeMaid}
	if err := u.Validate(); err != nil {
		t.Errorf("valid user rejected: %v", err)
	}

	missingPhone := User{Name: "Asha", UserType: UserTypeMaid}
	if err := missingPhone.Validate(); err == nil {
		t.Error("expected error for missing phone_number")
	}

	badType := User{Name: "Asha", PhoneNumber: "+91", UserType: "ROBOT"}
	if err := badType.Validate(); !errors.Is(err, ErrDataIntegrity) {
		t.Errorf("expected ErrDataIntegrity for unknown user type, got %v", err)
	}
}

func TestTemplateValidate(t *testing.T) {
	tmpl := Template{Name: "salary", Channel: ChannelEmail, Language: "en", Body: "Hi {name}"}
	if err := tmpl.Validate(); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}

	tmpl.Channel = "PIGEON"
	if err := tmpl.Validate(); !errors.Is(err, ErrDataIntegrity) {
		t.Errorf("expected ErrDataIntegrity for unknown channel, got %v", err)
	}
}

func TestInboundMessageValidate(t *testing.T) {
	cases := []struct {
		name    string
		msg     InboundMessage
		wantErr error
	}{
		{"text only", InboundMessage{PhoneNumber: "+1111", Text: "done"}, nil},
		{"audio only", InboundMessage{PhoneNumber: "+1111", AudioRef: "https://a/b.ogg"}, nil},
		{"neither", InboundMessage{PhoneNumber: "+1111"}, ErrInvalidInbound},
		{"both", InboundMessage{PhoneNumber: "+1111", Text: "x", AudioRef: "y"}, ErrInvalidInbound},
	}
	for _, c := range cases {
		err := c.msg.Validate()
		if c.wantErr == nil && err != nil {
			t.Errorf("%s: unexpected error: %v", c.name, err)
		}
		if c.wantErr != nil && !errors.Is(err, c.wantErr) {
			t.Errorf("%s: expected %v, got %v", c.name, c.wantErr, err)
		}
	}
}
