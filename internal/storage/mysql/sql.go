package mysql

const reviewColumns = "id, pos_id, author_id, review, approval_count, approved, created_at, updated_at"

const getReviewSQL = "SELECT " + reviewColumns + " FROM reviews WHERE id = ?"

// Row lock held until the enclosing transaction ends.
const lockReviewSQL = getReviewSQL + " FOR UPDATE"

const listReviewsSQL = "SELECT " + reviewColumns + " FROM reviews ORDER BY id"

const filterReviewsSQL = "SELECT " + reviewColumns + `
FROM reviews
WHERE pos_id = ? AND approved = ?
ORDER BY id`

const insertReviewSQL = `
INSERT INTO reviews (pos_id, author_id, review, approval_count, approved)
VALUES (?, ?, ?, ?, ?)
`

const updateReviewSQL = `
UPDATE reviews
SET pos_id = ?, author_id = ?, review = ?, approval_count = ?, approved = ?,
    updated_at = CURRENT_TIMESTAMP(6)
WHERE id = ?
`

const getPOSSQL = "SELECT id, name FROM pos WHERE id = ?"

const getUserSQL = "SELECT id, login_name FROM users WHERE id = ?"

const insertPOSSQL = `
INSERT INTO pos (id, name) VALUES (?, ?)
ON DUPLICATE KEY UPDATE name = VALUES(name)
`

const insertUserSQL = `
INSERT INTO users (id, login_name) VALUES (?, ?)
ON DUPLICATE KEY UPDATE login_name = VALUES(login_name)
`
