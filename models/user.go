package models

// UserRole 由外部認證服務簽發在 token 中的角色
type UserRole string

const (
	RoleFreelancer UserRole = "freelancer"
	RoleClient     UserRole = "client"
)

// Identity 驗證 token 後得到的使用者身分 (id, role)
type Identity struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// ErrorResponse 結構體用於返回 JSON 格式的錯誤訊息
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse 成功但沒有資源內容時的回應
type MessageResponse struct {
	Message string `json:"message"`
}
