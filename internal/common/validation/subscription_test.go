// internal/common/validation/subscription_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSubscription(t *testing.T) {
	tests := []struct {
		name     string
		document string
		wantErr  bool
	}{
		{
			name:     "valid descriptor",
			document: `{"endpoint":"https://fcm.googleapis.com/fcm/send/abc","keys":{"p256dh":"BNcRd","auth":"tBHI"}}`,
			wantErr:  false,
		},
		{
			name:     "extra fields tolerated",
			document: `{"endpoint":"https://push.example.com/a","expirationTime":null,"keys":{"p256dh":"x","auth":"y"}}`,
			wantErr:  false,
		},
		{
			name:     "missing endpoint",
			document: `{"keys":{"p256dh":"x","auth":"y"}}`,
			wantErr:  true,
		},
		{
			name:     "missing keys",
			document: `{"endpoint":"https://push.example.com/a"}`,
			wantErr:  true,
		},
		{
			name:     "missing auth key",
			document: `{"endpoint":"https://push.example.com/a","keys":{"p256dh":"x"}}`,
			wantErr:  true,
		},
		{
			name:     "empty key material",
			document: `{"endpoint":"https://push.example.com/a","keys":{"p256dh":"","auth":"y"}}`,
			wantErr:  true,
		},
		{
			name:     "plain http endpoint",
			document: `{"endpoint":"http://push.example.com/a","keys":{"p256dh":"x","auth":"y"}}`,
			wantErr:  true,
		},
		{
			name:     "not an object",
			document: `"https://push.example.com/a"`,
			wantErr:  true,
		},
		{
			name:     "malformed JSON",
			document: `{"endpoint":`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubscription([]byte(tt.document))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
