/*
Package main implements opstoken, a small operator tool that mints the bearer
token accepted by the monitoring endpoints (/api/rooms).

Usage:

	MONITOR_SECRET=... opstoken -sub alice -ttl 12h
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"planpoker/internal/pkg/auth/jwt"
)

func main() {
	subject := flag.String("sub", "operator", "operator name recorded in the token")
	ttl := flag.Duration("ttl", jwt.OperatorTokenExpiration, "token lifetime")
	flag.Parse()

	secret := os.Getenv("MONITOR_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "MONITOR_SECRET must be set")
		os.Exit(2)
	}

	token, err := jwt.GenerateToken(*subject, jwt.RoleOperator, secret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
