package datastore

const (
	reserveLink = `
	INSERT INTO urls (owner_id, short_code, original_url, created_at, expires_at)
	VALUES (@owner_id, @short_code, @original_url, @created_at, @expires_at)
	ON CONFLICT (short_code) DO NOTHING
	RETURNING id, owner_id, short_code, original_url, created_at, expires_at, click_count
	`

	getLink = `
	SELECT id, owner_id, short_code, original_url, created_at, expires_at, click_count
	FROM urls
	WHERE short_code = $1
	`

	listLinksByOwner = `
	SELECT id, owner_id, short_code, original_url, created_at, expires_at, click_count
	FROM urls
	WHERE owner_id = $1
	ORDER BY created_at DESC, id DESC
	`

	deleteLink = `
	DELETE FROM urls
	WHERE short_code = $1 AND owner_id = $2
	`

	linkOwner = `
	SELECT owner_id FROM urls
	WHERE short_code = $1
	`

	addClicks = `
	UPDATE urls
	SET click_count = click_count + $2
	WHERE short_code = $1
	`

	purgeExpired = `
	DELETE FROM urls
	WHERE expires_at <= $1
	RETURNING short_code
	`

	insertUser = `
	INSERT INTO users (username, email, password_hash)
	VALUES (@username, @email, @password_hash)
	ON CONFLICT (username) DO NOTHING
	RETURNING id, username, email, password_hash, created_at
	`

	getUserByUsername = `
	SELECT id, username, email, password_hash, created_at
	FROM users
	WHERE username = $1
	`
)
