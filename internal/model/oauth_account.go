package model

import "time"

// OAuthAccount links one external provider identity to a local user
// in the `oauth_accounts` table.  (Provider, ProviderUserID) is the
// lookup key and is unique; (UserID, Provider) is also unique so a
// user holds at most one link per provider.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – local user owning the link.
//  Provider       – provider name (google, facebook, microsoft, apple).
//  ProviderUserID – subject identifier assigned by the provider.
//  Email          – email as last observed from the provider.
//  Name           – display name as last observed from the provider.
//  Picture        – avatar URL as last observed from the provider.
//  CreatedAt      – timestamp of creation.
type OAuthAccount struct {
	ID             uint64    // oauth_accounts.id
	UserID         uint64    // oauth_accounts.user_id
	Provider       string    // oauth_accounts.provider
	ProviderUserID string    // oauth_accounts.provider_user_id
	Email          string    // oauth_accounts.email
	Name           string    // oauth_accounts.name
	Picture        string    // oauth_accounts.picture
	CreatedAt      time.Time // oauth_accounts.created_at
}
