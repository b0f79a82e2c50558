package backend

// User is a backend user record. FaceEmbedding is the opaque encoded
// descriptor and is passed through untouched.
type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Gender        string `json:"gender,omitempty"`
	Position      string `json:"position,omitempty"`
	Department    string `json:"department,omitempty"`
	FaceEmbedding string `json:"face_embedding,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password,omitempty"`
	Gender        string `json:"gender,omitempty"`
	FaceEmbedding string `json:"face_embedding"`
}

// UpdateUserRequest is the body of PUT /users/{id}. Empty fields are left unchanged.
type UpdateUserRequest struct {
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Gender        string `json:"gender,omitempty"`
	Position      string `json:"position,omitempty"`
	Department    string `json:"department,omitempty"`
	FaceEmbedding string `json:"face_embedding,omitempty"`
}

// CheckInRequest is the body of the check-in and check-out calls.
type CheckInRequest struct {
	UserID        int64  `json:"user_id,omitempty"`
	FaceEmbedding string `json:"face_embedding"`
	Location      string `json:"location"`
}

// AttendanceRecord is one attendance day of a user. Times are kept as the
// backend formats them.
type AttendanceRecord struct {
	ID           int64    `json:"id"`
	UserID       int64    `json:"user_id"`
	Date         string   `json:"date"`
	CheckInTime  string   `json:"check_in_time,omitempty"`
	CheckOutTime string   `json:"check_out_time,omitempty"`
	Status       string   `json:"status,omitempty"`
	WorkHours    *float64 `json:"work_hours,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Location     string   `json:"location,omitempty"`
}

// AttendanceResponse is returned by check-in and check-out.
type AttendanceResponse struct {
	Message    string            `json:"message,omitempty"`
	Status     string            `json:"status,omitempty"`
	User       *User             `json:"user,omitempty"`
	Attendance *AttendanceRecord `json:"attendance,omitempty"`
}

// HistoryParams filters GET /attendance/history/{userId}.
type HistoryParams struct {
	StartDate string
	EndDate   string
	Limit     int
}
