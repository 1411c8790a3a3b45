package utils

import "testing"

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{"simple id", "rdeshmukh", false},
		{"with digits and underscore", "user_42", false},
		{"with hyphen", "first-last", false},
		{"too short", "ab", true},
		{"empty", "", true},
		{"spaces", "user name", true},
		{"special characters", "user@portal", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.userID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserID(%q) error = %v, wantErr %v", tt.userID, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmployeeCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"engineer code", "ENG-10234", false},
		{"clerk code", "CLK-50001", false},
		{"long prefix", "ADMN-123456", false},
		{"lowercase prefix", "eng-10234", true},
		{"missing hyphen", "ENG10234", true},
		{"short number", "ENG-123", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmployeeCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmployeeCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}
