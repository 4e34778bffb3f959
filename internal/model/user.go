// Package model はドメインモデルを定義する。
// いずれもリモートのバックエンドが所有するエンティティであり、
// このリポジトリはシリアライズ可能な一時コピーのみを保持する。
package model

// User はログイン中のユーザーとプロフィール属性を表す。
type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	Age       *int      `json:"age,omitempty"`
	SkinType  string    `json:"skin_type,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt Timestamp `json:"created_at"`
}

// DisplayName は画面表示用の名前を返す。
// 氏名が未設定の場合はユーザー名を使う。
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Credentials はログインリクエストのボディ。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration はユーザー登録リクエストのボディ。
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// ProfileUpdate はプロフィール更新リクエストのボディ。
type ProfileUpdate struct {
	FullName string `json:"full_name"`
	Age      *int   `json:"age"`
	SkinType string `json:"skin_type"`
}

// LoginResult はログインAPIのレスポンスのうち利用するフィールド。
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}
