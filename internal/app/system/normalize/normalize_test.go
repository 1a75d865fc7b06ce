package normalize

import "testing"

func TestNormalizers(t *testing.T) {
	tests := []struct {
		fn   string
		f    func(string) string
		in   string
		want string
	}{
		{"Email", Email, "  Anu.Raj@Example.COM ", "anu.raj@example.com"},
		{"Email", Email, "   ", ""},

		{"Name", Name, "  Lakshmi   Narayanan ", "Lakshmi Narayanan"},
		{"Name", Name, "SRI  Devi\tChits", "SRI Devi Chits"},
		{"Name", Name, "", ""},

		{"Phone", Phone, "+91 98450-12345", "+919845012345"},
		{"Phone", Phone, " (080) 2345 6789 ", "08023456789"},
		{"Phone", Phone, "98+450", "98450"},
		{"Phone", Phone, "call me", ""},

		{"QueryParam", QueryParam, "  Gold Scheme ", "Gold Scheme"},

		{"FilterID", FilterID, " ALL ", ""},
		{"FilterID", FilterID, " 507f1f77bcf86cd799439011 ", "507f1f77bcf86cd799439011"},

		{"Lower", Lower, " UPI ", "upi"},
		{"Lower", Lower, "Bank_Transfer", "bank_transfer"},
	}

	for _, tt := range tests {
		t.Run(tt.fn+"/"+tt.in, func(t *testing.T) {
			if got := tt.f(tt.in); got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.fn, tt.in, got, tt.want)
			}
		})
	}
}
