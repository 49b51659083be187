package engine

import "testing"

func TestLookupTestOnCheckoutPrecedence(t *testing.T) {
	cases := []struct {
		name    string
		connStr string
		envVal  string
		envSet  bool
		want    bool
	}{
		{name: "default true when silent", connStr: "DRIVER={SQLite3}", want: true},
		{name: "connection string false wins over unset env", connStr: "DRIVER={SQLite3};TestOnCheckout=no", want: false},
		{name: "connection string true, case-insensitive alias", connStr: "DRIVER={SQLite3};Pool_Test_On_Check_Out=ON", want: true},
		{name: "connection string wins over env", connStr: "DRIVER={SQLite3};Test_On_Checkout=false", envSet: true, envVal: "true", want: false},
		{name: "unrecognized connection-string value falls through to env", connStr: "DRIVER={SQLite3};TestOnCheckout=maybe", envSet: true, envVal: "no", want: false},
		{name: "env var used when connection string silent", connStr: "DRIVER={SQLite3}", envSet: true, envVal: "yes", want: true},
		{name: "unrecognized env value falls through to default true", connStr: "DRIVER={SQLite3}", envSet: true, envVal: "maybe", want: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if tc.envSet {
				t.Setenv("ODBC_POOL_TEST_ON_CHECKOUT", tc.envVal)
			}
			if got := lookupTestOnCheckout(tc.connStr); got != tc.want {
				t.Errorf("lookupTestOnCheckout(%q) = %v, want %v", tc.connStr, got, tc.want)
			}
		})
	}
}
