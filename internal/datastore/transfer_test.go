package datastore

import "testing"

func TestParseS3URI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"bucket and prefix", "s3://mds-data/100/", "mds-data", "100/", false},
		{"prefix without trailing slash", "s3://mds-data/100", "mds-data", "100/", false},
		{"nested prefix", "s3://mds-data/ds/2026/run-1", "mds-data", "ds/2026/run-1/", false},
		{"bucket only", "s3://mds-data", "mds-data", "", false},
		{"bucket with trailing slash", "s3://mds-data/", "mds-data", "", false},
		{"missing scheme", "mds-data/100/", "", "", true},
		{"empty", "", "", "", true},
		{"scheme only", "s3://", "", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bucket, prefix, err := parseS3URI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseS3URI(%q) expected error", tt.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseS3URI(%q) error = %v", tt.uri, err)
			}
			if bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("parseS3URI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, prefix, tt.wantBucket, tt.wantPrefix)
			}
		})
	}
}
