package model

import "testing"

func TestParseLegacyBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		want MessagePayload
	}{
		{"plain text", "oi, tudo bem?", TextPayload("oi, tudo bem?")},
		{"image", "[image:https://cdn.example.com/p.jpg]", ImagePayload("https://cdn.example.com/p.jpg")},
		{"audio", "[audio:https://cdn.example.com/v.ogg]", AudioPayload("https://cdn.example.com/v.ogg")},
		{"video call", "[video-call:room-42]", CallInvitePayload(CallKindVideo, "room-42")},
		{"voice call", "[audio-call:room-42]", CallInvitePayload(CallKindVoice, "room-42")},
		{"broken tag stays text", "[image:]", TextPayload("[image:]")},
		{"unknown tag stays text", "[gif:https://x.test/a.gif]", TextPayload("[gif:https://x.test/a.gif]")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLegacyBody(tc.body)
			if got.Kind != tc.want.Kind || got.Text != tc.want.Text || got.URL != tc.want.URL ||
				got.CallKind != tc.want.CallKind || got.CallRoom != tc.want.CallRoom {
				t.Fatalf("parse %q: got %+v want %+v", tc.body, got, tc.want)
			}
		})
	}
}

func TestPayloadValidate(t *testing.T) {
	if err := TextPayload("  ").Validate(); err == nil {
		t.Fatal("blank text must not validate")
	}
	if err := ImagePayload("ftp://nope").Validate(); err == nil {
		t.Fatal("non-http media url must not validate")
	}
	if err := CallInvitePayload("screen", "room").Validate(); err == nil {
		t.Fatal("unknown call kind must not validate")
	}
	if err := (MessagePayload{Kind: "sticker"}).Validate(); err == nil {
		t.Fatal("unknown kind must not validate")
	}
	if err := CallInvitePayload(CallKindVideo, "room-1").Validate(); err != nil {
		t.Fatalf("valid invite rejected: %v", err)
	}
}
