// Package accountsdk is a Go client for the accounts service.
//
// Unauthenticated calls (register, login, health) hang off SDKClient. A
// successful Login returns a Session carrying the bearer token, and every
// admin operation on users is a Session method:
//
//	client := accountsdk.NewSDKClient("http://localhost:8080")
//	session, _, err := client.Login(ctx, "administrator", "password")
//	if err != nil {
//		return err
//	}
//	defer session.Logout(ctx)
//
//	users, err := session.ListUsers(ctx, accountsdk.ListUsersParams{Search: "ali"})
//
// Non-2xx responses are returned as *APIError.
package accountsdk
